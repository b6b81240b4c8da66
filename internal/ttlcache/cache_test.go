package ttlcache

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Cache_ZeroTTLAlwaysRecomputes(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	var computes int
	fn := func() (interface{}, error) {
		computes++
		return computes, nil
	}

	v, err := c.GetOrCompute("k", 0, fn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	time.Sleep(5 * time.Millisecond)

	v, err = c.GetOrCompute("k", 0, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	assert.Equal(t, 2, computes)
}

func Test_Cache_FreshEntryComputesExactlyOnce(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	var computes int
	fn := func() (interface{}, error) {
		computes++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", time.Minute, fn)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}

	assert.Equal(t, 1, computes)

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Computes)
}

func Test_Cache_ExpiredEntryCountsAsMissing(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	c, err := New(16)
	require.NoError(t, err)
	c.WithClock(clock)

	var computes int
	fn := func() (interface{}, error) {
		computes++
		return computes, nil
	}

	_, err = c.GetOrCompute("k", time.Second, fn)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)

	v, err := c.GetOrCompute("k", time.Second, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, computes)
}

func Test_Cache_ComputeErrorsAreNotStored(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = c.GetOrCompute("k", time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.Equal(t, boom, err)
	assert.Equal(t, 0, c.Count())

	v, err := c.GetOrCompute("k", time.Minute, func() (interface{}, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func Test_Cache_InvalidateDropsTheEntry(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	var computes int
	fn := func() (interface{}, error) {
		computes++
		return computes, nil
	}

	_, err = c.GetOrCompute("k", time.Minute, fn)
	require.NoError(t, err)

	c.Invalidate("k")

	_, err = c.GetOrCompute("k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, computes)
}

func Test_Cache_EvictsWhenFull(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	fn := func() (interface{}, error) { return "v", nil }

	_, _ = c.GetOrCompute("a", time.Minute, fn)
	_, _ = c.GetOrCompute("b", time.Minute, fn)
	_, _ = c.GetOrCompute("c", time.Minute, fn)

	assert.True(t, c.Count() <= 2)
}

func Test_Cache_RejectsNegativeCapacity(t *testing.T) {
	_, err := New(-1)
	require.Error(t, err)
	assert.Equal(t, ErrIllegalCapacity, errors.Cause(err))
}

func Test_Cache_ConcurrentAccessNeverCorruptsTheStore(t *testing.T) {
	c, err := New(128)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				v, err := c.GetOrCompute("shared", time.Minute, func() (interface{}, error) {
					return "constant", nil
				})
				assert.NoError(t, err)
				assert.Equal(t, "constant", v)
			}
		}()
	}

	wg.Wait()

	v, ok := c.Get("shared", time.Minute)
	require.True(t, ok)
	assert.Equal(t, "constant", v)
}

func Test_Cache_PurgeEmptiesEverything(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	fn := func() (interface{}, error) { return "v", nil }
	_, _ = c.GetOrCompute("a", time.Minute, fn)
	_, _ = c.GetOrCompute("b", time.Minute, fn)
	require.Equal(t, 2, c.Count())

	c.Purge()
	assert.Equal(t, 0, c.Count())
}
