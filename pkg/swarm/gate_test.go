package swarm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateSerializesCalls(t *testing.T) {
	gate := NewGate(1)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.Do(context.Background(), func() error {
				current := atomic.AddInt32(&active, 1)
				if current > atomic.LoadInt32(&maxActive) {
					atomic.StoreInt32(&maxActive, current)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}

func TestGateReturnsCallError(t *testing.T) {
	gate := NewGate(2)
	wantErr := errors.New("daemon hatası")

	err := gate.Do(context.Background(), func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestGateRespectsCancellation(t *testing.T) {
	gate := NewGate(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = gate.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.Do(ctx, func() error { return nil })
	require.Error(t, err)

	close(release)
}
