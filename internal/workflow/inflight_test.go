package workflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInFlightAcquireRelease(t *testing.T) {
	tbl := newInFlightTable()

	assert.True(t, tbl.tryAcquire("a"))
	assert.False(t, tbl.tryAcquire("a"))
	assert.True(t, tbl.tryAcquire("b"))

	tbl.release("a")
	assert.True(t, tbl.tryAcquire("a"))
}

func TestInFlightReleaseUnheldKey(t *testing.T) {
	tbl := newInFlightTable()
	tbl.release("never-acquired")
	assert.True(t, tbl.tryAcquire("never-acquired"))
}

func TestInFlightSingleWinnerUnderContention(t *testing.T) {
	tbl := newInFlightTable()

	const goroutines = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tbl.tryAcquire("contested") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
