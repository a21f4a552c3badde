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
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeURL = "https://example.supabase.co/rest/v1/"

func TestManual(t *testing.T) {
	m := NewManual(false)
	ctx := context.Background()
	assert.True(t, IsOffline(ctx, m))

	var got []Status
	unsubscribe := m.Subscribe(func(s Status) { got = append(got, s) })
	assert.Equal(t, 1, m.Subscribers())

	m.SetConnected(true)
	m.SetConnected(true)
	m.SetConnected(false)

	require.Len(t, got, 2)
	assert.True(t, got[0].Connected)
	assert.False(t, got[1].Connected)
	assert.False(t, IsOffline(ctx, NewManual(true)))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, m.Subscribers())
	m.SetConnected(true)
	assert.Len(t, got, 2)
}

func TestProber_Check(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	p := NewProber(probeURL, time.Hour, time.Second, client)
	ctx := context.Background()

	httpmock.RegisterResponder(http.MethodHead, probeURL, httpmock.NewStringResponder(http.StatusOK, ""))
	status := p.CurrentStatus(ctx)
	assert.True(t, status.Connected)
	require.NotNil(t, status.Reachable)
	assert.True(t, *status.Reachable)

	var mu sync.Mutex
	var transitions []bool
	p.Subscribe(func(s Status) {
		mu.Lock()
		transitions = append(transitions, s.Connected)
		mu.Unlock()
	})

	httpmock.RegisterResponder(http.MethodHead, probeURL, httpmock.NewErrorResponder(errors.New("network is unreachable")))
	status = p.Check(ctx)
	assert.False(t, status.Connected)
	assert.Nil(t, status.Reachable)
	assert.True(t, IsOffline(ctx, p), "cached status is used after a probe")

	httpmock.RegisterResponder(http.MethodHead, probeURL, httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))
	status = p.Check(ctx)
	assert.True(t, status.Connected)
	require.NotNil(t, status.Reachable)
	assert.False(t, *status.Reachable)

	p.Check(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, transitions)
}

func TestProber_StartStop(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodHead, probeURL, httpmock.NewStringResponder(http.StatusNoContent, ""))

	p := NewProber(probeURL, 10*time.Millisecond, time.Second, client)
	p.Start(context.Background())
	p.Start(context.Background())

	assert.Eventually(t, func() bool {
		return httpmock.GetTotalCallCount() >= 3
	}, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop()
	calls := httpmock.GetTotalCallCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, httpmock.GetTotalCallCount())
	assert.True(t, p.CurrentStatus(context.Background()).Connected)
}
