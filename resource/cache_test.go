package resource

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	var loads int
	c := NewCache("cache_test", LoaderFunc(func(path string) ([]byte, error) {
		loads++
		if path == "missing" {
			return nil, os.ErrNotExist
		}
		return []byte(path), nil
	}))

	t.Run("load once per path", func(t *testing.T) {
		a, err := c.Load("tree")
		require.NoError(t, err)
		require.Equal(t, []byte("tree"), a.Data)

		b, err := c.Load("tree")
		require.NoError(t, err)
		require.Same(t, a, b)

		require.Equal(t, 1, loads)
		require.Equal(t, 2, c.RefCount("tree"))
		require.Equal(t, 1, c.Len())
		require.Equal(t, float64(1), testutil.ToFloat64(resourceLoaded.With(prometheus.Labels{cacheLabel: "cache_test"})))
	})

	t.Run("release on last unload", func(t *testing.T) {
		require.False(t, c.Unload("tree"))
		require.Equal(t, 1, c.RefCount("tree"))

		require.True(t, c.Unload("tree"))
		require.Zero(t, c.RefCount("tree"))
		require.Zero(t, c.Len())
		require.False(t, c.Unload("tree"))
		require.Equal(t, float64(0), testutil.ToFloat64(resourceLoaded.With(prometheus.Labels{cacheLabel: "cache_test"})))
	})

	t.Run("load failure", func(t *testing.T) {
		_, err := c.Load("missing")
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeLoadFailed))
		require.True(t, errors.Is(err, os.ErrNotExist))
		require.Zero(t, c.Len())
	})

	t.Run("clear", func(t *testing.T) {
		_, err := c.Load("rock")
		require.NoError(t, err)
		_, err = c.Load("bush")
		require.NoError(t, err)

		c.Clear()
		require.Zero(t, c.Len())
	})
}

func TestCacheConcurrentUse(t *testing.T) {
	c := NewCache("cache_concurrent_test", LoaderFunc(func(path string) ([]byte, error) {
		return []byte(path), nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := c.Load("shared")
				require.NoError(t, err)
				c.Unload("shared")
			}
		}()
	}
	wg.Wait()

	require.Zero(t, c.Len())
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "props"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "props", "tree.bin"), []byte("leaves"), 0o644))

	l := DirLoader(dir)

	data, err := l.Load("props/tree.bin")
	require.NoError(t, err)
	require.Equal(t, []byte("leaves"), data)

	data, err = l.Load("../props/tree.bin")
	require.NoError(t, err)
	require.Equal(t, []byte("leaves"), data)

	_, err = l.Load("props/rock.bin")
	require.Error(t, err)
}
