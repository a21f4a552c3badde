/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package connectivity

import (
	"context"
	"sync"
)

// Status is a point-in-time view of network reachability.
// Reachable is nil when it has not been determined.
type Status struct {
	Connected bool  `json:"connected"`
	Reachable *bool `json:"reachable"`
}

// Observer reports reachability and notifies subscribers when it changes.
type Observer interface {
	CurrentStatus(ctx context.Context) Status
	// Subscribe registers fn for every connectivity transition and returns its unsubscribe func.
	Subscribe(fn func(Status)) func()
}

// IsOffline asks the observer for a fresh status.
func IsOffline(ctx context.Context, o Observer) bool {
	return !o.CurrentStatus(ctx).Connected
}

type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Status)
}

func (s *subscribers) add(fn func(Status)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Status))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) notify(status Status) {
	s.mu.Lock()
	fns := make([]func(Status), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}

func (s *subscribers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
