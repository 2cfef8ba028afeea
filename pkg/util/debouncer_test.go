package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer(t *testing.T) {
	t.Run("starts disarmed", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		defer d.Stop()

		assert.False(t, d.Armed())
		select {
		case <-d.C():
			t.Fatal("debouncer fired without a trigger")
		case <-time.After(60 * time.Millisecond):
		}
	})

	t.Run("fires after quiet period", func(t *testing.T) {
		d := NewDebouncer(50 * time.Millisecond)
		defer d.Stop()

		d.Trigger()
		assert.True(t, d.Armed())

		select {
		case <-d.C():
			d.Fired()
		case <-time.After(200 * time.Millisecond):
			t.Fatal("debouncer did not fire within expected time")
		}
		assert.False(t, d.Armed())
	})

	t.Run("triggers postpone firing", func(t *testing.T) {
		d := NewDebouncer(50 * time.Millisecond)
		defer d.Stop()

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(20 * time.Millisecond)
			defer ticker.Stop()
			for i := 0; i < 5; i++ {
				<-ticker.C
				d.Trigger()
			}
			close(done)
		}()

		select {
		case <-d.C():
			t.Fatal("debouncer fired while being triggered")
		case <-done:
		}

		select {
		case <-d.C():
		case <-time.After(200 * time.Millisecond):
			t.Fatal("debouncer did not fire after triggers stopped")
		}
	})

	t.Run("cancel disarms", func(t *testing.T) {
		d := NewDebouncer(30 * time.Millisecond)
		defer d.Stop()

		d.Trigger()
		d.Cancel()
		assert.False(t, d.Armed())

		select {
		case <-d.C():
			t.Fatal("debouncer fired after cancel")
		case <-time.After(80 * time.Millisecond):
		}

		// Still usable after cancel.
		d.Trigger()
		select {
		case <-d.C():
		case <-time.After(200 * time.Millisecond):
			t.Fatal("debouncer did not fire after re-trigger")
		}
	})

	t.Run("trigger after stop is no-op", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		d.Stop()
		d.Trigger()
		assert.False(t, d.Armed())

		select {
		case <-d.C():
			t.Fatal("debouncer fired after stop and trigger")
		case <-time.After(60 * time.Millisecond):
		}
	})

	t.Run("multiple stops are safe", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		d.Stop()
		d.Stop()
		d.Stop()
	})
}
