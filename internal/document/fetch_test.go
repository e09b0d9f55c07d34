package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(t *testing.T, server *httptest.Server) *docCache {
	t.Helper()
	cache, err := newDocCache(Config{CacheDir: t.TempDir()}.withDefaults(), server.Client())
	if err != nil {
		t.Fatalf("newDocCache: %v", err)
	}
	return cache
}

func TestCacheReusesFreshFile(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Etag", `"v1"`)
		_, _ = w.Write([]byte("%PDF-1.4\nHello"))
	}))
	t.Cleanup(server.Close)

	cache := newTestCache(t, server)
	ctx := context.Background()

	path, err := cache.Fetch(ctx, server.URL+"/docs/report.pdf")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cached file missing: %v", err)
	}
	path2, err := cache.Fetch(ctx, server.URL+"/docs/report.pdf")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if path != path2 {
		t.Fatalf("paths differ: %s vs %s", path, path2)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected single download, got %d hits", got)
	}
}

func TestCacheConditionalRefresh(t *testing.T) {
	var conditional atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v2"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Etag", `"v2"`)
		_, _ = w.Write([]byte("%PDF-1.4\nUpdated"))
	}))
	t.Cleanup(server.Close)

	cache := newTestCache(t, server)
	ctx := context.Background()

	path, err := cache.Fetch(ctx, server.URL+"/a.pdf")
	if err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	old := time.Now().Add(-(cacheTTL + time.Hour))
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if _, err := cache.Fetch(ctx, server.URL+"/a.pdf"); err != nil {
		t.Fatalf("conditional fetch: %v", err)
	}
	if conditional.Load() != 1 {
		t.Fatal("stale copy should trigger a conditional request")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if time.Since(info.ModTime()) > time.Hour {
		t.Fatal("not-modified response should restart the TTL")
	}
}

func TestCacheResumesPartialDownload(t *testing.T) {
	var rangeHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader = r.Header.Get("Range")
		w.Header().Set("Etag", `"resume"`)
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("world"))
	}))
	t.Cleanup(server.Close)

	cache := newTestCache(t, server)
	docURL := server.URL + "/b.pdf"
	p := cache.pathsFor(cacheKey(docURL))
	if err := os.WriteFile(p.partial, []byte("hello "), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	if err := writeMeta(p.meta, cacheMeta{ETag: `"resume"`}); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	path, err := cache.Fetch(context.Background(), docURL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cached doc: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("resume failed, got %q", string(data))
	}
	if rangeHeader != fmt.Sprintf("bytes=%d-", len("hello ")) {
		t.Fatalf("expected range header, got %q", rangeHeader)
	}
	if _, err := os.Stat(p.partial); !os.IsNotExist(err) {
		t.Fatalf("partial file should be gone, err=%v", err)
	}
}

func TestCacheServesStaleCopyWhenRefreshFails(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	t.Cleanup(server.Close)

	cache := newTestCache(t, server)
	ctx := context.Background()
	path, err := cache.Fetch(ctx, server.URL+"/c.pdf")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	old := time.Now().Add(-(cacheTTL + time.Hour))
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	fail.Store(true)
	got, err := cache.Fetch(ctx, server.URL+"/c.pdf")
	if err != nil || got != path {
		t.Fatalf("stale copy should be served, got %q err=%v", got, err)
	}
	if _, err := cache.Fetch(ctx, server.URL+"/missing.pdf"); err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("uncached failure should surface, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	t.Setenv(CacheDirEnv, t.TempDir())

	local, err := Resolve(context.Background(), Config{}, "testdata/paper.pdf")
	if err != nil || local != "testdata/paper.pdf" {
		t.Fatalf("local path should pass through, got %q err=%v", local, err)
	}

	_, err = Resolve(context.Background(), Config{}, server.URL+"/gone.pdf")
	if !errors.Is(err, ErrDocumentLoad) {
		t.Fatalf("failed download should classify as a load error, got %v", err)
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url    string
		suffix string
	}{
		{"https://example.com/papers/attention.pdf", "-attention"},
		{"https://example.com/a/../b/x%20y.pdf", "-x-y"},
		{"https://example.com/", ""},
	}
	for _, tc := range tests {
		key := cacheKey(tc.url)
		if strings.ContainsAny(key, `/\ `) {
			t.Fatalf("cache key %q should be sanitized", key)
		}
		if tc.suffix != "" && !strings.HasSuffix(key, tc.suffix) {
			t.Fatalf("cacheKey(%q) = %q, want suffix %q", tc.url, key, tc.suffix)
		}
		if tc.suffix == "" && len(key) != 16 {
			t.Fatalf("cacheKey(%q) = %q, want bare hash", tc.url, key)
		}
	}
	if cacheKey("https://a.test/x.pdf") == cacheKey("https://b.test/x.pdf") {
		t.Fatal("different URLs must not share a key")
	}
}
