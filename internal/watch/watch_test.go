package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	sources []string
}

func (r *recorder) Invalidate(source string) {
	r.mu.Lock()
	r.sources = append(r.sources, source)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := NewWatcher(dir, 100*time.Millisecond, []string{".md"}, rec, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "post.md"), []byte{byte('a' + i)}, 0o644))
	}

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, SourceFS, rec.sources[0])

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := NewWatcher(dir, 50*time.Millisecond, []string{".md"}, rec, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".post.md.swp"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestWatcher_Relevant(t *testing.T) {
	w := &Watcher{extensions: []string{".md", ".MDX"}}
	assert.True(t, w.relevant(fsnotify.Event{Name: "/p/a.md", Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "/p/a.mdx", Op: fsnotify.Remove}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/p/a.md", Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/p/a.md~", Op: fsnotify.Create}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/p/a.png", Op: fsnotify.Create}))
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), 0, nil, &recorder{}, nil)
	assert.Error(t, err)
}

func TestSubscribe_InvalidatesOnMessage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rec := &recorder{}
	ctx := context.Background()
	stop, err := Subscribe(ctx, client, "folio:invalidate", rec, nil)
	require.NoError(t, err)

	n, err := Publish(ctx, client, "folio:invalidate", "post edited")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, SourceRedis, rec.sources[0])

	stop()
	_, err = Publish(ctx, client, "folio:invalidate", "after stop")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestSubscribe_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Subscribe(ctx, client, "folio:invalidate", &recorder{}, nil)
	assert.Error(t, err)
}
