// Package covers keeps local copies of book thumbnails so clients do not
// hit the image host on every page view.
package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxImageBytes caps a downloaded thumbnail.
const MaxImageBytes = 5 << 20

var (
	ErrNoThumbnail = errors.New("book has no thumbnail")
	ErrNotImage    = errors.New("thumbnail is not an image")
	ErrTooLarge    = errors.New("thumbnail exceeds size limit")
)

// Cache handles local caching of book thumbnails.
type Cache struct {
	cacheDir   string
	httpClient *http.Client
}

// NewCache creates a new thumbnail cache at the specified directory.
func NewCache(cacheDir string, timeout time.Duration) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Cache{
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Get returns the path of the cached thumbnail for a book, fetching it on a
// miss. The file name depends on the URL, so a changed thumbnail URL is a
// miss.
func (c *Cache) Get(ctx context.Context, bookID uint, thumbnailURL string) (string, error) {
	if thumbnailURL == "" {
		return "", ErrNoThumbnail
	}

	prefix := c.filenamePrefix(bookID, thumbnailURL)
	if matches, _ := filepath.Glob(filepath.Join(c.cacheDir, prefix+".*")); len(matches) > 0 {
		return matches[0], nil
	}

	return c.fetchAndCache(ctx, thumbnailURL, prefix)
}

// Invalidate removes every cached thumbnail of a book.
func (c *Cache) Invalidate(bookID uint) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("thumb_%d_*", bookID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// filenamePrefix is unique per book and URL; the extension comes from the
// served content type.
func (c *Cache) filenamePrefix(bookID uint, thumbnailURL string) string {
	hash := sha256.Sum256([]byte(thumbnailURL))
	return fmt.Sprintf("thumb_%d_%x", bookID, hash[:8])
}

func (c *Cache) fetchAndCache(ctx context.Context, url, prefix string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "BookStack/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch thumbnail: status %d", resp.StatusCode)
	}

	ext, err := imageExtension(resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}

	// Create temp file in same directory for atomic write
	tmpFile, err := os.CreateTemp(c.cacheDir, "thumb_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	n, err := io.Copy(tmpFile, io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return "", err
	}
	if n > MaxImageBytes {
		return "", ErrTooLarge
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	cachePath := filepath.Join(c.cacheDir, prefix+ext)
	if err := os.Rename(tmpPath, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

func imageExtension(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}
	switch mediaType {
	case "image/jpeg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return ".img", nil
	}
}

// Ping reports whether the cache directory is still usable.
func (c *Cache) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(c.cacheDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.cacheDir)
	}
	return nil
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}
