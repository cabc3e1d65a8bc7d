package preferences

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingStorage struct {
	getErr error
	setErr error
	value  string
	found  bool
}

func (f *failingStorage) Get(key string) (string, bool, error) {
	return f.value, f.found, f.getErr
}

func (f *failingStorage) Set(key, value string) error {
	return f.setErr
}

// gatedStorage blocks the first Set until release is closed
type gatedStorage struct {
	*MemoryStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStorage() *gatedStorage {
	return &gatedStorage{
		MemoryStorage: NewMemoryStorage(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (g *gatedStorage) Set(key, value string) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStorage.Set(key, value)
}

type recordingClipboard struct {
	text string
	err  error
}

func (r *recordingClipboard) WriteText(text string) error {
	if r.err != nil {
		return r.err
	}
	r.text = text
	return nil
}

func TestTokenRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{name: "plain", ids: []string{"abc", "x_1", "-Q9"}},
		{name: "derived ids", ids: []string{"Rock am Ring::2026-06-04", "Wacken::30.07.2026"}},
		{name: "separators", ids: []string{"a,b", "c#d", "50%", "x/y", "q?r"}},
		{name: "non-ascii", ids: []string{"Dinkelsbühl", "Фестиваль", "祭り"}},
		{name: "plus and space", ids: []string{"a+b c"}},
		{name: "single", ids: []string{"only"}},
		{name: "empty", ids: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := EncodeToken(tt.ids)
			assert.NotContains(t, token, "#")
			assert.Equal(t, tt.ids, DecodeToken(token))
		})
	}
}

func TestDecodeToken_DropsInvalidSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, DecodeToken("a,,%zz,b,"))
	assert.Equal(t, []string{}, DecodeToken(""))
}

func TestBuildShareURL(t *testing.T) {
	link := BuildShareURL([]string{"a,b", "c"}, "https://planner.example", "/festivals")
	assert.Equal(t, "https://planner.example/festivals#a%2Cb,c", link)

	fragment, ok := URLFragment(link).Fragment()
	require.True(t, ok)
	assert.Equal(t, []string{"a,b", "c"}, DecodeToken(fragment))
}

func TestURLFragment(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "https://x.example/#abc,def", want: "abc,def", wantOK: true},
		{raw: "https://x.example/", wantOK: false},
		{raw: "https://x.example/#", wantOK: false},
		{raw: "#a%23b", want: "a%23b", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := URLFragment(tt.raw).Fragment()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_ToggleTwiceRestoresStorage(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(DefaultStorageKey, `["a","c"]`))

	store := NewStore(storage, DefaultStorageKey, zap.NewNop())
	original := store.Load()
	before, _, _ := storage.Get(DefaultStorageKey)

	for _, id := range []string{"b", "a"} {
		t.Run(id, func(t *testing.T) {
			store.Toggle(id)
			after := store.Toggle(id)

			assert.True(t, original.Equal(after))
			stored, ok, err := storage.Get(DefaultStorageKey)
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, before, stored)
			assert.Equal(t, `["a","c"]`, stored)
		})
	}
}

func TestStore_ToggleTwiceKeepsStoredOrder(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(DefaultStorageKey, `["c","a"]`))

	store := NewStore(storage, DefaultStorageKey, zap.NewNop())
	store.Load()

	for _, id := range []string{"b", "a", "c"} {
		t.Run(id, func(t *testing.T) {
			store.Toggle(id)
			store.Toggle(id)

			stored, _, err := storage.Get(DefaultStorageKey)
			require.NoError(t, err)
			assert.Equal(t, `["c","a"]`, stored)
		})
	}

	store.MergeFromToken("z")
	stored, _, _ := storage.Get(DefaultStorageKey)
	assert.Equal(t, `["c","a","z"]`, stored)
}

func TestStore_ConcurrentTogglesPersistInOrder(t *testing.T) {
	storage := newGatedStorage()
	store := NewStore(storage, DefaultStorageKey, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Toggle("a")
	}()
	<-storage.entered

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		store.MergeFromToken("b")
	}()

	select {
	case <-secondDone:
		t.Fatal("second mutation finished while the first write was pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(storage.release)
	wg.Wait()
	<-secondDone

	stored, ok, err := storage.Get(DefaultStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["a","b"]`, stored)

	reloaded := NewStore(storage, DefaultStorageKey, zap.NewNop()).Load()
	assert.True(t, reloaded.Equal(store.Current()))
}

func TestStore_MergeCommutativeAndIdempotent(t *testing.T) {
	tokenA := EncodeToken([]string{"a", "shared", "x,y"})
	tokenB := EncodeToken([]string{"b", "shared"})

	newStore := func() *Store {
		storage := NewMemoryStorage()
		require.NoError(t, storage.Set(DefaultStorageKey, `["mine"]`))
		store := NewStore(storage, "", zap.NewNop())
		store.Load()
		return store
	}

	ab := newStore()
	ab.MergeFromToken(tokenA)
	resultAB := ab.MergeFromToken(tokenB)

	ba := newStore()
	ba.MergeFromToken(tokenB)
	resultBA := ba.MergeFromToken(tokenA)

	assert.True(t, resultAB.Equal(resultBA))
	assert.Equal(t, []string{"a", "b", "mine", "shared", "x,y"}, resultAB.IDs())

	again := ab.MergeFromToken(tokenA)
	assert.True(t, again.Equal(resultAB))
}

func TestStore_Startup(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(DefaultStorageKey, `["kept"]`))

	store := NewStore(storage, DefaultStorageKey, zap.NewNop())
	set := store.Startup(URLFragment("https://x.example/#new,kept"))

	assert.Equal(t, []string{"kept", "new"}, set.IDs())
	stored, _, _ := storage.Get(DefaultStorageKey)
	assert.Equal(t, `["kept","new"]`, stored)

	other := NewStore(NewMemoryStorage(), DefaultStorageKey, zap.NewNop())
	assert.Empty(t, other.Startup(NoFragment{}))
}

func TestStore_LoadTolerance(t *testing.T) {
	tests := []struct {
		name    string
		storage Storage
	}{
		{name: "missing key", storage: NewMemoryStorage()},
		{name: "read error", storage: &failingStorage{getErr: errors.New("quota")}},
		{name: "corrupt value", storage: &failingStorage{value: "{not json", found: true}},
		{name: "wrong shape", storage: &failingStorage{value: `{"a":1}`, found: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(tt.storage, DefaultStorageKey, zap.NewNop())
			set := store.Load()
			assert.NotNil(t, set)
			assert.Empty(t, set)
		})
	}
}

func TestStore_WriteFailureKeepsMemoryState(t *testing.T) {
	store := NewStore(&failingStorage{setErr: errors.New("read-only")}, DefaultStorageKey, zap.NewNop())

	set := store.Toggle("a")
	assert.True(t, set.Has("a"))
	assert.True(t, store.IsLiked("a"))

	set = store.MergeFromToken("b")
	assert.Equal(t, []string{"a", "b"}, set.IDs())
}

func TestStore_Subscribe(t *testing.T) {
	store := NewStore(NewMemoryStorage(), DefaultStorageKey, zap.NewNop())

	var seen []int
	store.Subscribe(func(s Set) {
		seen = append(seen, len(s))
		s["mutated"] = struct{}{}
	})

	store.Toggle("a")
	store.MergeFromToken("b,c")
	store.Toggle("a")

	assert.Equal(t, []int{1, 3, 2}, seen)
	assert.False(t, store.IsLiked("mutated"))
}

func TestShare(t *testing.T) {
	clip := &recordingClipboard{}
	link, copied := Share([]string{"a"}, "https://x.example", "/", clip)
	assert.True(t, copied)
	assert.Equal(t, "https://x.example/#a", link)
	assert.Equal(t, link, clip.text)

	link, copied = Share([]string{"a"}, "https://x.example", "/", &recordingClipboard{err: ErrClipboardUnavailable})
	assert.False(t, copied)
	assert.Equal(t, "https://x.example/#a", link)

	_, copied = Share([]string{"a"}, "https://x.example", "/", nil)
	assert.False(t, copied)
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "preferences.json")
	storage := NewFileStorage(path)

	_, ok, err := storage.Get(DefaultStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Set(DefaultStorageKey, `["a"]`))
	require.NoError(t, storage.Set("other", "x"))

	value, ok, err := NewFileStorage(path).Get(DefaultStorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["a"]`, value)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, _, err = storage.Get(DefaultStorageKey)
	assert.Error(t, err)

	store := NewStore(storage, DefaultStorageKey, zap.NewNop())
	assert.Empty(t, store.Load())
	store.Toggle("b")

	value, ok, err = storage.Get(DefaultStorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["b"]`, value)
}

func TestCommandClipboard(t *testing.T) {
	var written string
	clip := &CommandClipboard{writeAll: func(text string) error {
		written = text
		return nil
	}}

	link, copied := Share([]string{"a", "b"}, "https://x.example", "/", clip)
	assert.True(t, copied)
	assert.Equal(t, link, written)

	unsupported := &CommandClipboard{unsupported: true}
	assert.ErrorIs(t, unsupported.WriteText("x"), ErrClipboardUnavailable)

	failing := &CommandClipboard{writeAll: func(string) error { return errors.New("no display") }}
	link, copied = Share([]string{"a"}, "https://x.example", "/", failing)
	assert.False(t, copied)
	assert.Equal(t, "https://x.example/#a", link)
}
