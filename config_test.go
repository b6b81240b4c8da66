package parse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Config_DefaultsAreFilledIn(t *testing.T) {
	defer Configure(Config{})

	Configure(Config{})

	cfg := CurrentConfig()
	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, defaultCacheTTL, cfg.CacheTTL)
	assert.Nil(t, cfg.Repository)
}

func Test_Config_ExplicitValuesWin(t *testing.T) {
	defer Configure(Config{})

	repo := newMemoryRepository()
	Configure(Config{Repository: repo, CacheTTL: time.Second})

	cfg := CurrentConfig()
	assert.Equal(t, time.Second, cfg.CacheTTL)
	assert.NotNil(t, cfg.Repository)
}

func Test_Config_ConcurrentReadWrite(t *testing.T) {
	defer Configure(Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Configure(Config{CacheTTL: time.Duration(j+1) * time.Millisecond})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := CurrentConfig()
				assert.NotNil(t, cfg.Logger)
			}
		}()
	}

	wg.Wait()
}
