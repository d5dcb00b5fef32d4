package icon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ByLCY/grimoire/icon"
	mockicon "github.com/ByLCY/grimoire/icon/mock"
)

func TestNewKeyNormalizesColors(t *testing.T) {
	a, err := icon.NewKey("Area-Cone", "#C63B2B", "#fff")
	require.NoError(t, err)
	b, err := icon.NewKey("area-cone", "rgb(198, 59, 43)", "white")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "area-cone_c63b2b_ffffff.png", a.FileName())

	_, err = icon.NewKey("", "#000", "#fff")
	assert.Error(t, err)
	_, err = icon.NewKey("x", "var(--nope)", "#fff")
	assert.Error(t, err)
}

func TestDirLoaderMissingAsset(t *testing.T) {
	dir := t.TempDir()
	loader, err := icon.NewDirLoader(dir)
	require.NoError(t, err)

	key, err := icon.NewKey("ritual", "#1e1e1e", "#ffffff")
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), key)

	var missing *icon.AssetMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, key, missing.Key)
	assert.Contains(t, err.Error(), "ritual")

	require.NoError(t, os.WriteFile(filepath.Join(dir, key.FileName()), []byte("png"), 0o644))
	img, err := loader.Load(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(img.Path))
	assert.Equal(t, key, img.Key)
}

func TestCacheLoadsOncePerNormalizedKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mockicon.NewMockLoader(ctrl)

	key, err := icon.NewKey("damage-fire", "#c63b2b", "#ffffff")
	require.NoError(t, err)
	loader.EXPECT().
		Load(gomock.Any(), key).
		Return(icon.Image{Key: key, Path: "/tmp/x.png"}, nil).
		Times(1)

	cache := icon.NewCache(loader)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background(), "damage-fire", "#C63B2B", "white")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	img, err := cache.Get(context.Background(), "DAMAGE-FIRE", "rgb(198,59,43)", "#ffffffff")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.png", img.Path)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheDoesNotMemoizeFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mockicon.NewMockLoader(ctrl)
	key, err := icon.NewKey("heal", "#000000", "#ffffff")
	require.NoError(t, err)

	gomock.InOrder(
		loader.EXPECT().Load(gomock.Any(), key).Return(icon.Image{}, &icon.AssetMissingError{Key: key}),
		loader.EXPECT().Load(gomock.Any(), key).Return(icon.Image{Key: key, Path: "/p"}, nil),
	)

	cache := icon.NewCache(loader)
	_, err = cache.Load(context.Background(), key)
	require.Error(t, err)
	_, err = cache.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestRecorderKeepsFirstSeenOrder(t *testing.T) {
	rec := icon.NewRecorder()
	k1, _ := icon.NewKey("a", "#000", "#fff")
	k2, _ := icon.NewKey("b", "#000", "#fff")
	for _, k := range []icon.Key{k1, k2, k1} {
		_, err := rec.Load(context.Background(), k)
		require.NoError(t, err)
	}
	assert.Equal(t, []icon.Key{k1, k2}, rec.Keys())
}

func TestGeneratorWritesLoadableAssets(t *testing.T) {
	dir := t.TempDir()
	var keys []icon.Key
	for _, name := range []string{"area-cone", "area-emanation", "component-material-consumed", "class-wizard"} {
		k, err := icon.NewKey(name, "#7a4fb0", "transparent")
		require.NoError(t, err)
		keys = append(keys, k)
	}
	gen := icon.NewGenerator(dir, 2)
	n, err := gen.GenerateAll(context.Background(), keys)
	require.NoError(t, err)
	assert.Equal(t, len(keys), n)

	n, err = gen.GenerateAll(context.Background(), keys)
	require.NoError(t, err)
	assert.Zero(t, n, "已存在的资源不应重复生成")

	loader, err := icon.NewDirLoader(dir)
	require.NoError(t, err)
	for _, k := range keys {
		_, err := loader.Load(context.Background(), k)
		assert.NoError(t, err)
	}
}
