package resman

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingStore wraps a Store and records container churn so tests can
// assert that every registered overlay entry is unregistered again.
type recordingStore struct {
	inner   Store
	adds    int
	removes int
	live    map[Container]int
}

func newRecordingStore(inner Store) *recordingStore {
	return &recordingStore{inner: inner, live: make(map[Container]int)}
}

func (r *recordingStore) AddContainer(c Container) error {
	if err := r.inner.AddContainer(c); err != nil {
		return err
	}
	r.adds++
	r.live[c]++
	return nil
}

func (r *recordingStore) RemoveContainer(c Container) {
	r.inner.RemoveContainer(c)
	r.removes++
	if r.live[c] > 0 {
		r.live[c]--
	}
}

func (r *recordingStore) Contains(id ResourceID) bool           { return r.inner.Contains(id) }
func (r *recordingStore) ReadAll(id ResourceID) ([]byte, error) { return r.inner.ReadAll(id) }

func (r *recordingStore) liveCount() int {
	n := 0
	for _, c := range r.live {
		n += c
	}
	return n
}

func resolveVia(t *testing.T, svc *Service, id ResourceID, overlay []Container) Result {
	t.Helper()
	reply := make(chan Result, 1)
	svc.Submit(Request{ID: id, Overlay: overlay, Reply: reply})
	return <-reply
}

func TestServiceResolvesThroughOverlay(t *testing.T) {
	dir := t.TempDir()
	src := writeFixture(t, dir, "script.nss", "void main() {}")

	store := newRecordingStore(NewBasicStore())
	svc := NewService(store, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	overlay := []Container{FileContainer(src), DirectoryContainer(dir)}
	res := resolveVia(t, svc, NewResourceID("script", TypeSource), overlay)

	require.True(t, res.Found)
	assert.Equal(t, "void main() {}", string(res.Data))

	// Overlay fully unregistered once the reply is delivered.
	assert.Equal(t, 0, store.liveCount())
	assert.Equal(t, store.adds, store.removes)
}

func TestServiceMissReturnsAbsent(t *testing.T) {
	store := NewBasicStore()
	svc := NewService(store, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	res := resolveVia(t, svc, NewResourceID("nothing", TypeSource), nil)
	assert.False(t, res.Found)
	assert.Nil(t, res.Data)
}

func TestServiceOverlayDoesNotLeakBetweenRequests(t *testing.T) {
	dirA := t.TempDir()
	writeFixture(t, dirA, "only_in_a.nss", "// a")

	store := NewBasicStore()
	svc := NewService(store, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	// Job A resolves successfully through its overlay.
	resA := resolveVia(t, svc, NewResourceID("only_in_a", TypeSource),
		[]Container{DirectoryContainer(dirA)})
	require.True(t, resA.Found)

	// Job B carries no overlay: A's containers must be gone by now, so the
	// same identifier no longer resolves.
	resB := resolveVia(t, svc, NewResourceID("only_in_a", TypeSource), nil)
	assert.False(t, resB.Found, "overlay from a finished request leaked into the store")
}

func TestServiceMostSpecificEntryWins(t *testing.T) {
	dir := t.TempDir()
	// Directory copy and a shadowing single-file copy with different bytes.
	writeFixture(t, dir, "inc.nss", "// directory copy")
	shadowDir := t.TempDir()
	shadow := writeFixture(t, shadowDir, "inc.nss", "// shadow copy")

	store := NewBasicStore()
	svc := NewService(store, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	// Most-specific first: the shadow file precedes the directory.
	overlay := []Container{FileContainer(shadow), DirectoryContainer(dir)}
	res := resolveVia(t, svc, NewResourceID("inc", TypeSource), overlay)

	require.True(t, res.Found)
	assert.Equal(t, "// shadow copy", string(res.Data))
}

func TestServiceSkipsUnusableOverlayEntries(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "real.nss", "// real")

	store := NewBasicStore()
	svc := NewService(store, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	overlay := []Container{
		DirectoryContainer(filepath.Join(dir, "does-not-exist")),
		DirectoryContainer(dir),
	}
	res := resolveVia(t, svc, NewResourceID("real", TypeSource), overlay)
	assert.True(t, res.Found)
}

// panicStore blows up on Contains to simulate a store raising mid-lookup.
type panicStore struct {
	*recordingStore
}

func (p panicStore) Contains(ResourceID) bool { panic("archive corrupted") }

func TestServiceUnregistersOverlayWhenStorePanics(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "x.nss", "// x")

	rec := newRecordingStore(NewBasicStore())
	svc := NewService(panicStore{rec}, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	res := resolveVia(t, svc, NewResourceID("x", TypeSource),
		[]Container{DirectoryContainer(dir)})

	assert.False(t, res.Found)
	assert.Equal(t, 0, rec.liveCount(), "overlay must be unregistered even when the store panics")

	// The service survives the panic and keeps answering.
	res = resolveVia(t, svc, NewResourceID("x", TypeSource), nil)
	assert.False(t, res.Found)
}

func TestServiceAnswersAbsentAfterStop(t *testing.T) {
	dir := t.TempDir()
	src := writeFixture(t, dir, "script.nss", "void main() {}")

	svc := NewService(NewBasicStore(), zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	overlay := []Container{FileContainer(src), DirectoryContainer(dir)}
	require.True(t, resolveVia(t, svc, NewResourceID("script", TypeSource), overlay).Found)

	cancel()
	<-svc.stopped

	// Submissions after shutdown resolve to absent instead of blocking
	// the caller on a loop that no longer receives.
	res := resolveVia(t, svc, NewResourceID("script", TypeSource), overlay)
	assert.False(t, res.Found)
	assert.Nil(t, res.Data)
}
