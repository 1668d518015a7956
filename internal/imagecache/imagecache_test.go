package imagecache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LookupMiss(t *testing.T) {
	t.Parallel()

	cache, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	_, ok := cache.Lookup("https://example.com/product/1")
	assert.False(t, ok)
}

func TestCache_PreloadAndLookup(t *testing.T) {
	t.Parallel()

	image := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/image.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(image)
	})
	mux.HandleFunc("/product/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><meta property="og:image" content="%s/image.jpg"></head></html>`, server.URL)
	})

	cache, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	link := server.URL + "/product/1"
	cache.Preload(context.Background(), []string{link})

	path, ok := cache.Lookup(link)
	require.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image, data)
}

// A page without a preview image is skipped, not fatal.
func TestCache_PreloadSkipsFailures(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/product/bare", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head></head></html>`)
	})

	cache, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	link := server.URL + "/product/bare"
	cache.Preload(context.Background(), []string{link, server.URL + "/missing"})

	_, ok := cache.Lookup(link)
	assert.False(t, ok)
}
