package web

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageServer(t *testing.T, width, height int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestThumbnailer_Width(t *testing.T) {
	thumbs := NewThumbnailer(ThumbnailOptions{MaxWidth: 500}, zerolog.Nop())

	tests := []struct {
		raw      string
		expected int
	}{
		{"", defaultThumbWidth},
		{"abc", defaultThumbWidth},
		{"-5", defaultThumbWidth},
		{"120", 120},
		{"5000", 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, thumbs.Width(tt.raw), "raw %q", tt.raw)
	}
}

func TestThumbnailer_ResizesAndCaches(t *testing.T) {
	images, hits := newImageServer(t, 800, 400)
	thumbs := NewThumbnailer(ThumbnailOptions{MaxWidth: 600, AllowedHosts: []string{"127.0.0.1"}}, zerolog.Nop())

	data, err := thumbs.Thumbnail(context.Background(), images.URL+"/rem.png", 200)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy(), "aspect ratio is kept")

	again, err := thumbs.Thumbnail(context.Background(), images.URL+"/rem.png", 200)
	require.NoError(t, err)
	assert.Equal(t, data, again)
	assert.Equal(t, int32(1), hits.Load(), "second call is served from the cache")
}

func TestThumbnailer_DoesNotUpscale(t *testing.T) {
	images, _ := newImageServer(t, 100, 50)
	thumbs := NewThumbnailer(ThumbnailOptions{AllowedHosts: []string{"127.0.0.1"}}, zerolog.Nop())

	data, err := thumbs.Thumbnail(context.Background(), images.URL+"/small.png", 300)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestThumbnailer_Sources(t *testing.T) {
	images, hits := newImageServer(t, 10, 10)

	tests := []struct {
		name    string
		allowed []string
		src     string
		wantErr error
	}{
		{"relative", nil, "/rem.png", ErrInvalidSource},
		{"unsupported scheme", []string{"img.example"}, "ftp://img.example/rem.png", ErrInvalidSource},
		{"empty allowlist refuses everything", nil, images.URL + "/rem.png", ErrSourceNotAllowed},
		{"other host name", []string{"LOCALHOST"}, images.URL + "/rem.png", ErrSourceNotAllowed},
		{"host not allowed", []string{"img.example"}, images.URL + "/rem.png", ErrSourceNotAllowed},
		{"host allowed", []string{"127.0.0.1"}, images.URL + "/rem.png", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumbs := NewThumbnailer(ThumbnailOptions{AllowedHosts: tt.allowed}, zerolog.Nop())
			_, err := thumbs.Thumbnail(context.Background(), tt.src, 100)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, int32(1), hits.Load(), "refused sources are never fetched")
}

func TestThumbnailer_RefusesOversizedImages(t *testing.T) {
	images, _ := newImageServer(t, 300, 200)
	thumbs := NewThumbnailer(ThumbnailOptions{AllowedHosts: []string{"127.0.0.1"}, MaxPixels: 300*200 - 1}, zerolog.Nop())

	_, err := thumbs.Thumbnail(context.Background(), images.URL+"/big.png", 100)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	thumbs = NewThumbnailer(ThumbnailOptions{AllowedHosts: []string{"127.0.0.1"}, MaxPixels: 300 * 200}, zerolog.Nop())
	_, err = thumbs.Thumbnail(context.Background(), images.URL+"/big.png", 100)
	assert.NoError(t, err)
}

func TestThumbnailRoute(t *testing.T) {
	images, _ := newImageServer(t, 400, 400)
	srv := newTestServer(t, newFakeBackend(), func(o *Options) {
		o.Thumbnails = ThumbnailOptions{Enabled: true, MaxWidth: 600}
	})

	rec := do(srv, http.MethodGet, "/img?w=100&src="+url.QueryEscape(images.URL+"/rem.png"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	rec = do(srv, http.MethodGet, "/img?src=not-a-url", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodGet, "/img?src="+url.QueryEscape(images.URL+"/missing.png"), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// only the backend host is allowed by default
	other := strings.Replace(images.URL, "127.0.0.1", "localhost", 1)
	rec = do(srv, http.MethodGet, "/img?src="+url.QueryEscape(other+"/rem.png"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThumbnailRoute_CardsUseThumbnails(t *testing.T) {
	backend := newFakeBackend()
	backend.pages["2"] = `{"items": [{"id": "x", "name": "Miku", "manufacturerName": "Good Smile",
		"status": "Available", "imageUrl": "https://img.example/miku.png"}], "totalPages": 3}`
	srv := newTestServer(t, backend, func(o *Options) {
		o.Thumbnails = ThumbnailOptions{Enabled: true, AllowedHosts: []string{"img.example"}}
	})

	rec := do(srv, http.MethodGet, "/figures/more?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/img?src=")
}

func TestThumbnailRoute_CardsKeepUnknownHosts(t *testing.T) {
	backend := newFakeBackend()
	backend.pages["2"] = `{"items": [{"id": "x", "name": "Miku", "manufacturerName": "Good Smile",
		"status": "Available", "imageUrl": "https://cdn.other.example/miku.png"}], "totalPages": 3}`
	srv := newTestServer(t, backend, func(o *Options) {
		o.Thumbnails = ThumbnailOptions{Enabled: true, AllowedHosts: []string{"img.example"}}
	})

	rec := do(srv, http.MethodGet, "/figures/more?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/img?src=")
	assert.Contains(t, rec.Body.String(), "https://cdn.other.example/miku.png")
}

func TestThumbnailRoute_DisabledIsNotRouted(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	rec := do(srv, http.MethodGet, "/img?src=https://img.example/a.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
