package syncutil

import (
	"sync"
	"testing"
)

func TestShardedMutexSerializesSameKey(t *testing.T) {
	var m ShardedMutex

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("ord_1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("expected 100 increments, got %d", counter)
	}
}

func TestShardedMutexUnlockReleases(t *testing.T) {
	var m ShardedMutex

	unlock := m.Lock("ord_1")
	unlock()

	// Re-acquiring the same key after unlock must not block.
	unlock = m.Lock("ord_1")
	unlock()
}
