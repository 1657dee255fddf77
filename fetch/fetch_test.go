package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls atomic.Int32
	delay time.Duration
	data  []byte
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.data, f.err
}

func TestHTTP_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.mp3":
			_, _ = w.Write([]byte("ID3data"))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	h := NewHTTP(time.Second)

	data, err := h.Fetch(context.Background(), srv.URL+"/ok.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3data"), data)

	_, err = h.Fetch(context.Background(), srv.URL+"/missing.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFile_Fetch(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "click.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF"), 0o644))

	data, err := File{}.Fetch(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)

	data, err = File{}.Fetch(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)

	_, err = File{}.Fetch(context.Background(), filepath.Join(dir, "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMux_RoutesByScheme(t *testing.T) {
	web := &stubFetcher{data: []byte("web")}
	local := &stubFetcher{data: []byte("local")}
	m := NewMux().Handle("https", web).Handle("", local)

	data, err := m.Fetch(context.Background(), "https://example.com/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("web"), data)

	data, err = m.Fetch(context.Background(), "sounds/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), data)

	_, err = m.Fetch(context.Background(), "ftp://example.com/a.mp3")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestShared_CollapsesConcurrentFetches(t *testing.T) {
	next := &stubFetcher{data: []byte("x"), delay: 30 * time.Millisecond}
	s := NewShared(next, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := s.Fetch(context.Background(), "a.mp3")
			assert.NoError(t, err)
			assert.Equal(t, []byte("x"), data)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), next.calls.Load())
}

func TestShared_CachesWithinTTL(t *testing.T) {
	next := &stubFetcher{data: []byte("x")}
	s := NewShared(next, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := s.Fetch(context.Background(), "a.mp3")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	s.Forget("a.mp3")
	_, err := s.Fetch(context.Background(), "a.mp3")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestShared_ErrorsAreNotCached(t *testing.T) {
	next := &stubFetcher{err: assert.AnError}
	s := NewShared(next, time.Minute)

	_, err := s.Fetch(context.Background(), "a.mp3")
	assert.ErrorIs(t, err, assert.AnError)
	_, err = s.Fetch(context.Background(), "a.mp3")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int32(2), next.calls.Load())
}
