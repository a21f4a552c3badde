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

// Manual is an Observer driven by explicit SetConnected calls, for embedders that already
// receive platform network events and for tests.
type Manual struct {
	mu        sync.RWMutex
	connected bool
	subs      subscribers
}

func NewManual(connected bool) *Manual {
	return &Manual{connected: connected}
}

func (m *Manual) CurrentStatus(context.Context) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reachable := m.connected
	return Status{Connected: m.connected, Reachable: &reachable}
}

func (m *Manual) Subscribe(fn func(Status)) func() {
	return m.subs.add(fn)
}

// SetConnected updates the state and notifies subscribers when it changed.
func (m *Manual) SetConnected(connected bool) {
	m.mu.Lock()
	changed := m.connected != connected
	m.connected = connected
	m.mu.Unlock()

	if changed {
		reachable := connected
		m.subs.notify(Status{Connected: connected, Reachable: &reachable})
	}
}

// Subscribers returns the number of registered callbacks.
func (m *Manual) Subscribers() int {
	return m.subs.count()
}
