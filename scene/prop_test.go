package scene

import (
	"os"
	"testing"

	"github.com/aukilabs/scenestream/resource"
	"github.com/aukilabs/scenestream/stream"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func newTestCache(name string) *resource.Cache {
	return resource.NewCache(name, resource.LoaderFunc(func(path string) ([]byte, error) {
		if path == "props/missing.bin" {
			return nil, os.ErrNotExist
		}
		return []byte(path), nil
	}))
}

func TestProp(t *testing.T) {
	cache := newTestCache("prop_test")
	parent := stream.Parent{
		Name:      "world",
		Resources: cache,
	}

	a := NewProp(Object{Resource: "props/tree.bin", Position: mgl32.Vec3{1, 2, 3}, Scale: mgl32.Vec3{2, 2, 2}})
	b := NewProp(Object{Resource: "props/tree.bin"})

	t.Run("show loads the resource", func(t *testing.T) {
		require.Equal(t, a.Object().AABB(), a.Bounds())
		require.True(t, a.Show(parent))
		require.True(t, a.Shown())
		require.Equal(t, []byte("props/tree.bin"), a.Asset().Data)
		require.Equal(t, 1, cache.RefCount("props/tree.bin"))

		require.False(t, a.Show(parent))
		require.Equal(t, 1, cache.RefCount("props/tree.bin"))

		require.True(t, b.Show(parent))
		require.Same(t, a.Asset(), b.Asset())
		require.Equal(t, 2, cache.RefCount("props/tree.bin"))
	})

	t.Run("hide releases the resource", func(t *testing.T) {
		a.Hide()
		require.False(t, a.Shown())
		require.Nil(t, a.Asset())
		require.Equal(t, 1, cache.RefCount("props/tree.bin"))

		a.Hide()
		require.Equal(t, 1, cache.RefCount("props/tree.bin"))

		b.Hide()
		require.Zero(t, cache.Len())
	})

	t.Run("missing resource", func(t *testing.T) {
		p := NewProp(Object{Resource: "props/missing.bin"})
		require.False(t, p.Show(parent))
		require.False(t, p.Shown())

		p.Hide()
		require.Zero(t, cache.Len())
	})

	t.Run("parent without resources", func(t *testing.T) {
		p := NewProp(Object{Resource: "props/tree.bin"})
		require.True(t, p.Show(stream.Parent{Name: "world"}))
		require.Nil(t, p.Asset())

		p.Hide()
		require.False(t, p.Shown())
	})
}
