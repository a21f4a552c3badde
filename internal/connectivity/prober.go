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
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Prober decides reachability by periodically requesting a URL. Any HTTP response means the
// device is connected; a response below 500 also means the backend is reachable.
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu      sync.RWMutex
	status  Status
	checked bool
	subs    subscribers

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	runMu   sync.Mutex
}

func NewProber(url string, interval, timeout time.Duration, client *http.Client) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	if timeout > 0 {
		c := *client
		c.Timeout = timeout
		client = &c
	}
	return &Prober{
		url:      url,
		interval: interval,
		client:   client,
	}
}

// CurrentStatus returns the last probed status, probing first if nothing has been checked yet.
func (p *Prober) CurrentStatus(ctx context.Context) Status {
	p.mu.RLock()
	status, checked := p.status, p.checked
	p.mu.RUnlock()
	if checked {
		return status
	}
	return p.Check(ctx)
}

func (p *Prober) Subscribe(fn func(Status)) func() {
	return p.subs.add(fn)
}

// Check probes now, stores the result and notifies subscribers on a change of Connected.
func (p *Prober) Check(ctx context.Context) Status {
	status := p.probe(ctx)

	p.mu.Lock()
	changed := p.checked && p.status.Connected != status.Connected
	p.status = status
	p.checked = true
	p.mu.Unlock()

	if changed {
		logrus.WithField("connected", status.Connected).Info("connectivity changed")
		p.subs.notify(status)
	}
	return status
}

func (p *Prober) probe(ctx context.Context) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		logrus.WithError(err).Error("invalid connectivity probe url")
		return Status{}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		logrus.WithError(err).Debug("connectivity probe failed")
		return Status{}
	}
	resp.Body.Close()
	reachable := resp.StatusCode < http.StatusInternalServerError
	return Status{Connected: true, Reachable: &reachable}
}

// Start performs an initial probe and keeps probing every interval until Stop.
func (p *Prober) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	p.Check(ctx)

	p.wg.Add(1)
	go p.run(ctx)
}

func (p *Prober) run(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

func (p *Prober) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if !p.running {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
	p.running = false
}
