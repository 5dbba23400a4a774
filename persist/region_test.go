package persist_test

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/storekit/expiration"
	"github.com/krisalay/storekit/persist"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func openRegion(t *testing.T, root string, clock expiration.Clock, opts ...persist.Option) *persist.Region {
	t.Helper()

	opts = append([]persist.Option{persist.WithRoot(root), persist.WithClock(clock)}, opts...)
	r, err := persist.Open("data", opts...)
	require.NoError(t, err)
	return r
}

func TestFilePathLayout(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/c", "Data", "data.cache"), persist.FilePath("/tmp/c", "data"))
	assert.Equal(t, filepath.Join("/tmp/c", "Settings", "settings.cache"), persist.FilePath("/tmp/c", "settings"))
}

func TestOpenMissingFileStartsEmptyAndCreatesFile(t *testing.T) {
	root := t.TempDir()
	r := openRegion(t, root, expiration.NewManual(epoch))

	assert.Empty(t, r.LiveEntries())
	assert.FileExists(t, r.Path())

	b, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestPersistenceRoundTripDropsExpired(t *testing.T) {
	root := t.TempDir()
	clock := expiration.NewManual(epoch)

	r := openRegion(t, root, clock)
	r.Store("a", `"alpha"`, time.Hour)
	r.Store("b", `2`, time.Hour)
	r.Store("c", `{"x":true}`, time.Hour)
	r.Store("gone", `"bye"`, time.Second)
	clock.Advance(2 * time.Second)

	require.NoError(t, r.Save())

	fresh := openRegion(t, root, clock)

	for key, want := range map[string]string{"a": `"alpha"`, "b": `2`, "c": `{"x":true}`} {
		v, ok := fresh.Read(key)
		require.True(t, ok, key)
		assert.Equal(t, want, v)
	}
	_, ok := fresh.Read("gone")
	assert.False(t, ok)
	assert.Len(t, fresh.LiveEntries(), 3)
}

func TestLoadDropsEntriesExpiredSinceSave(t *testing.T) {
	root := t.TempDir()
	clock := expiration.NewManual(epoch)

	r := openRegion(t, root, clock)
	r.Store("short", "1", time.Minute)
	r.Store("long", "2", time.Hour)
	require.NoError(t, r.Save())

	clock.Advance(2 * time.Minute)
	fresh := openRegion(t, root, clock)

	assert.False(t, fresh.Engine().Contains("short"), "expired entries are not reinserted")
	v, ok := fresh.Read("long")
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestRestoredEntriesKeepTheirDeadline(t *testing.T) {
	root := t.TempDir()
	clock := expiration.NewManual(epoch)

	r := openRegion(t, root, clock)
	r.Store("k", "v", 10*time.Minute)
	require.NoError(t, r.Save())

	clock.Advance(5 * time.Minute)
	fresh := openRegion(t, root, clock)
	clock.Advance(6 * time.Minute)

	_, ok := fresh.Read("k")
	assert.False(t, ok)
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	root := t.TempDir()
	path := persist.FilePath(root, "data")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"`), 0o600))

	r := openRegion(t, root, expiration.NewManual(epoch))
	assert.Empty(t, r.LiveEntries())

	// The bad file is replaced by an empty snapshot.
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestLoadAcceptsEpochSeconds(t *testing.T) {
	root := t.TempDir()
	path := persist.FilePath(root, "data")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	future := epoch.Add(time.Hour).Unix()
	past := epoch.Add(-time.Hour).Unix()
	doc := `[
		{"key":"live","value":"1","expirationDate":` + itoa(future) + `},
		{"key":"dead","value":"2","expirationDate":` + itoa(past) + `}
	]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	r := openRegion(t, root, expiration.NewManual(epoch))

	v, ok := r.Read("live")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = r.Read("dead")
	assert.False(t, ok)
}

func TestLoadRespectsCapacity(t *testing.T) {
	root := t.TempDir()
	clock := expiration.NewManual(epoch)

	r := openRegion(t, root, clock)
	for _, k := range []string{"a", "b", "c", "d"} {
		r.Store(k, k, time.Hour)
	}
	require.NoError(t, r.Save())

	small := openRegion(t, root, clock, persist.WithCapacity(2))
	assert.Len(t, small.LiveEntries(), 2)
	assert.Equal(t, 2, small.Engine().Len())
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	r := openRegion(t, root, expiration.NewManual(epoch))
	r.Store("a", "1", time.Hour)
	require.NoError(t, r.Save())

	files, err := os.ReadDir(filepath.Dir(r.Path()))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "data.cache", files[0].Name())
}

func TestOpenRejectsBadName(t *testing.T) {
	for _, name := range []string{"", "..", "a/b"} {
		_, err := persist.Open(name, persist.WithRoot(t.TempDir()))
		assert.Error(t, err, name)
	}
}

func TestRootFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(persist.EnvCacheDir, dir)

	root, err := persist.Root()
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestRegistryOpensOnce(t *testing.T) {
	reg := persist.NewRegistry(persist.WithRoot(t.TempDir()))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		regions = map[*persist.Region]struct{}{}
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := reg.Open("shared")
			assert.NoError(t, err)
			mu.Lock()
			regions[r] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, regions, 1)
	assert.Equal(t, []string{"shared"}, reg.Names())
	assert.NoError(t, reg.SaveAll())

	_, err := reg.Open("../escape")
	assert.Error(t, err)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
