package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelLimiter(t *testing.T) {
	l := NewModelLimiter(2)
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Acquire())

	err := l.Acquire()
	require.ErrorIs(t, err, ErrModelCallLimit)
	assert.Equal(t, "exceeded max model calls: 2", err.Error())
	assert.Equal(t, 3, l.Calls())
}

func TestModelLimiter_Unlimited(t *testing.T) {
	l := NewModelLimiter(0)
	for range 100 {
		require.NoError(t, l.Acquire())
	}
	assert.Equal(t, 100, l.Calls())
}

func TestModelLimiter_Concurrent(t *testing.T) {
	l := NewModelLimiter(10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Acquire() != nil {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 15, rejected)
}
