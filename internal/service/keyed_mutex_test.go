package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerialisesPerKey(t *testing.T) {
	locks := newKeyedMutex()
	counters := map[string]*int{"a": new(int), "b": new(int)}
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		for _, key := range []string{"a", "b"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := locks.Lock(key)
				defer unlock()
				*counters[key]++
			}(key)
		}
	}
	wg.Wait()

	require.Equal(t, 50, *counters["a"])
	require.Equal(t, 50, *counters["b"])
	require.Zero(t, locks.size())
}
