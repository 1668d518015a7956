// Package imagecache maintains a local cache of product preview images
// so chat alerts can attach a photo without fetching at send time.
package imagecache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// Cache stores one image file per product link, keyed by the link hash.
type Cache struct {
	dir         string
	client      *http.Client
	concurrency int
	logger      *slog.Logger
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image cache dir: %w", err)
	}
	return &Cache{
		dir:         dir,
		client:      &http.Client{Timeout: 30 * time.Second},
		concurrency: 4,
		logger:      logger,
	}, nil
}

// Lookup returns the cached image path for a product link, if present.
func (c *Cache) Lookup(productLink string) (string, bool) {
	path := c.path(productLink)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Preload fetches preview images for the given product links. Every
// failure is logged and skipped; a missing preview only means the alert
// goes out text-only.
func (c *Cache) Preload(ctx context.Context, links []string) {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)

	for _, link := range links {
		link := link
		if _, ok := c.Lookup(link); ok {
			continue
		}
		group.Go(func() error {
			if err := c.fetch(ctx, link); err != nil {
				c.logger.Debug("image preload failed",
					slog.String("product_link", link),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = group.Wait()
}

// fetch loads the product page, finds its preview image URL and stores
// the image under the link hash.
func (c *Cache) fetch(ctx context.Context, productLink string) error {
	imageURL, err := c.previewURL(ctx, productLink)
	if err != nil {
		return err
	}

	body, err := c.get(ctx, imageURL)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	tmp, err := os.CreateTemp(c.dir, "download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Rename is atomic, so a concurrent Lookup never sees a partial file.
	if err := os.Rename(tmp.Name(), c.path(productLink)); err != nil {
		return fmt.Errorf("storing image: %w", err)
	}
	return nil
}

// previewURL parses the product page and returns its og:image URL.
func (c *Cache) previewURL(ctx context.Context, productLink string) (string, error) {
	body, err := c.get(ctx, productLink)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parsing product page: %w", err)
	}

	imageURL, ok := doc.Find(`meta[property="og:image"]`).Attr("content")
	if !ok || imageURL == "" {
		return "", fmt.Errorf("no preview image on page")
	}
	return imageURL, nil
}

func (c *Cache) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Cache) path(productLink string) string {
	sum := sha1.Sum([]byte(productLink))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".jpg")
}
