package resilience

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwitch_Initial(t *testing.T) {
	on := NewSwitch("graph", true)
	assert.Equal(t, Enabled, on.State())
	assert.True(t, on.Enabled())

	off := NewSwitch("graph", false)
	assert.Equal(t, DisabledByConfig, off.State())
	assert.False(t, off.Enabled())
}

func TestSwitch_Disable(t *testing.T) {
	s := NewSwitch("cache", true)
	reason := errors.New("redis down")

	assert.True(t, s.Disable(reason))
	assert.Equal(t, DisabledByFailure, s.State())
	assert.Equal(t, reason, s.Reason())

	assert.False(t, s.Disable(errors.New("again")), "second disable is a no-op")
	assert.Equal(t, reason, s.Reason())
}

func TestSwitch_DisableByConfigIsSticky(t *testing.T) {
	s := NewSwitch("graph", false)
	assert.False(t, s.Disable(errors.New("boom")))
	assert.Equal(t, DisabledByConfig, s.State())
}

func TestSwitch_Nil(t *testing.T) {
	var s *Switch
	assert.True(t, s.Enabled())
	assert.False(t, s.Disable(errors.New("boom")))
	assert.Nil(t, s.Reason())
}

func TestSwitch_ConcurrentDisable(t *testing.T) {
	s := NewSwitch("graph", true)
	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Disable(errors.New("boom")) {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, transitions)
}
