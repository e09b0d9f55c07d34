package document

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// CacheDirEnv overrides the remote document cache location.
	CacheDirEnv = "BBOXVIEW_CACHE_DIR"

	cacheSubdir   = "bboxview/documents"
	cacheTTL      = 24 * time.Hour
	partialSuffix = ".part"
	metaSuffix    = ".meta"
)

// Resolve returns a local path for src. Local paths pass through untouched;
// http and https URLs are downloaded into the document cache.
func Resolve(ctx context.Context, cfg Config, src string) (string, error) {
	if !isRemote(src) {
		return src, nil
	}
	cache, err := newDocCache(cfg.withDefaults(), nil)
	if err != nil {
		return "", &LoadError{Path: src, Err: err}
	}
	local, err := cache.Fetch(ctx, src)
	if err != nil {
		return "", &LoadError{Path: src, Err: err}
	}
	return local, nil
}

func isRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type docCache struct {
	dir    string
	client *http.Client
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

// cachePaths groups the files backing one cached document.
type cachePaths struct {
	doc, meta, partial string
}

func newDocCache(cfg Config, client *http.Client) (*docCache, error) {
	dir := cfg.CacheDir
	if dir == "" {
		dir = os.Getenv(CacheDirEnv)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "bboxview-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &docCache{dir: dir, client: client}, nil
}

// Fetch returns the cached copy of docURL, downloading or refreshing it when
// the copy is missing or older than the TTL. A stale copy is still served
// when the refresh fails.
func (c *docCache) Fetch(ctx context.Context, docURL string) (string, error) {
	p := c.pathsFor(cacheKey(docURL))

	info, statErr := os.Stat(p.doc)
	if statErr == nil && info.Size() > 0 && time.Since(info.ModTime()) < cacheTTL {
		return p.doc, nil
	}
	if statErr != nil {
		info = nil
	}

	meta, _ := readMeta(p.meta)
	local, err := c.download(ctx, docURL, p, meta, info)
	if err == nil {
		return local, nil
	}
	if info != nil && info.Size() > 0 {
		log.Printf("[session] refresh of %s failed, serving cached copy: %v", docURL, err)
		return p.doc, nil
	}
	return "", err
}

func (c *docCache) download(ctx context.Context, docURL string, p cachePaths, meta cacheMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", err
	}
	haveCopy := current != nil && current.Size() > 0
	if haveCopy {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	var partialSize int64
	if info, err := os.Stat(p.partial); err == nil && info.Size() > 0 {
		partialSize = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", partialSize))
		switch {
		case meta.ETag != "":
			req.Header.Set("If-Range", meta.ETag)
		case meta.LastModified != "":
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if !haveCopy {
			return c.download(ctx, docURL, p, cacheMeta{}, nil)
		}
		meta.CachedAt = time.Now().UTC()
		if err := writeMeta(p.meta, meta); err != nil {
			return "", err
		}
		// Touch the copy so the TTL restarts.
		now := time.Now()
		if err := os.Chtimes(p.doc, now, now); err != nil {
			return "", err
		}
		return p.doc, nil
	case http.StatusOK:
		return c.store(resp, p, false)
	case http.StatusPartialContent:
		return c.store(resp, p, partialSize > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("download failed: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
}

func (c *docCache) store(resp *http.Response, p cachePaths, appendPartial bool) (string, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendPartial {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(p.partial, flags, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(p.partial, p.doc); err != nil {
		return "", err
	}

	meta := cacheMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(p.doc); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(p.meta, meta); err != nil {
		return "", err
	}
	return p.doc, nil
}

func (c *docCache) pathsFor(key string) cachePaths {
	base := filepath.Join(c.dir, key)
	return cachePaths{doc: base + ".pdf", meta: base + metaSuffix, partial: base + partialSuffix}
}

// cacheKey is a short URL hash followed by a readable stem of the file name.
func cacheKey(docURL string) string {
	sum := sha1.Sum([]byte(docURL))
	key := hex.EncodeToString(sum[:])[:16]
	u, err := url.Parse(docURL)
	if err != nil {
		return key
	}
	stem := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
	stem = sanitizeStem(stem)
	if stem == "" {
		return key
	}
	return key + "-" + stem
}

func sanitizeStem(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, value)
	value = strings.ReplaceAll(value, "..", "-")
	value = strings.Trim(value, "-.")
	if len(value) > 48 {
		value = value[:48]
	}
	return value
}

func readMeta(name string) (cacheMeta, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return cacheMeta{}, err
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeMeta(name string, meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o644)
}
