package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerPool(t *testing.T) {
	t.Run("Get and Put", func(t *testing.T) {
		timer1 := GetTimer(10 * time.Millisecond)
		require.NotNil(t, timer1)
		PutTimer(timer1)

		timer2 := GetTimer(20 * time.Millisecond)
		require.NotNil(t, timer2)
		<-timer2.C
		PutTimer(timer2)
	})

	t.Run("Put Active Timer", func(t *testing.T) {
		timer1 := GetTimer(100 * time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		PutTimer(timer1)

		begin := time.Now()
		timer2 := GetTimer(150 * time.Millisecond)

		select {
		case tt := <-timer2.C:
			assert.GreaterOrEqual(t, tt.Sub(begin), 130*time.Millisecond, "stale expiry leaked from pooled timer")
		case <-time.After(400 * time.Millisecond):
			t.Error("timer2 should have fired")
		}
		PutTimer(timer2)
	})

	t.Run("Concurrency", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				timer := GetTimer(5 * time.Millisecond)
				defer PutTimer(timer)
				<-timer.C
			}()
		}
		wg.Wait()
	})
}

func TestSleep(t *testing.T) {
	t.Run("Elapses", func(t *testing.T) {
		begin := time.Now()
		require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(begin), 20*time.Millisecond)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		begin := time.Now()
		err := Sleep(ctx, 5*time.Second)
		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(begin), time.Second)
	})

	t.Run("NonPositive", func(t *testing.T) {
		require.NoError(t, Sleep(context.Background(), 0))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, Sleep(ctx, -time.Second), context.Canceled)
	})
}
