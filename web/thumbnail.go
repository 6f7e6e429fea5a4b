package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/s0up4200/figureshelf/lru"
)

const (
	defaultThumbWidth = 300
	thumbQuality      = 75
	maxSourceBytes    = 10 << 20
	defaultMaxPixels  = 40_000_000
)

var (
	ErrSourceNotAllowed = errors.New("image host not allowed")
	ErrInvalidSource    = errors.New("invalid image source")
	ErrImageTooLarge    = errors.New("image too large")
)

// ThumbnailOptions configures the image resizing endpoint
type ThumbnailOptions struct {
	Enabled   bool
	MaxWidth  int
	CacheSize int
	// AllowedHosts lists the hosts images may be fetched from. Nothing else is fetched.
	AllowedHosts []string
	// MaxPixels caps width*height of a source image before it is decoded
	MaxPixels  int
	HTTPClient *http.Client
}

// Thumbnailer downscales remote figure images to JPEG and caches the result
type Thumbnailer struct {
	client    *http.Client
	maxWidth  int
	maxPixels int
	allowed   map[string]bool
	cache    *lru.Cache[[]byte]
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewThumbnailer creates a thumbnailer
func NewThumbnailer(opts ThumbnailOptions, logger zerolog.Logger) *Thumbnailer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	maxWidth := opts.MaxWidth
	if maxWidth < 1 {
		maxWidth = 600
	}
	cacheSize := opts.CacheSize
	if cacheSize < 1 {
		cacheSize = 128
	}
	maxPixels := opts.MaxPixels
	if maxPixels < 1 {
		maxPixels = defaultMaxPixels
	}

	allowed := make(map[string]bool, len(opts.AllowedHosts))
	for _, host := range opts.AllowedHosts {
		allowed[strings.ToLower(host)] = true
	}

	return &Thumbnailer{
		client:    client,
		maxWidth:  maxWidth,
		maxPixels: maxPixels,
		allowed:   allowed,
		cache:     lru.New[[]byte](cacheSize),
		logger:    logger,
	}
}

// Width clamps a requested width into (0, maxWidth]
func (t *Thumbnailer) Width(raw string) int {
	w, err := strconv.Atoi(raw)
	if err != nil || w < 1 {
		w = defaultThumbWidth
	}
	return min(w, t.maxWidth)
}

// checkSource validates the source URL and host
func (t *Thumbnailer) checkSource(src string) (*url.URL, error) {
	u, err := url.Parse(src)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, src)
	}
	if !t.allowed[strings.ToLower(u.Hostname())] {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotAllowed, u.Hostname())
	}
	return u, nil
}

// Allows reports whether src would be fetched
func (t *Thumbnailer) Allows(src string) bool {
	_, err := t.checkSource(src)
	return err == nil
}

// Thumbnail returns the JPEG bytes of src scaled down to width
func (t *Thumbnailer) Thumbnail(ctx context.Context, src string, width int) ([]byte, error) {
	u, err := t.checkSource(src)
	if err != nil {
		return nil, err
	}

	key := strconv.Itoa(width) + "|" + u.String()
	if data, ok := t.cache.Get(key); ok {
		return data, nil
	}

	v, err, _ := t.group.Do(key, func() (any, error) {
		data, err := t.render(context.WithoutCancel(ctx), u.String(), width)
		if err != nil {
			return nil, err
		}
		t.cache.Put(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (t *Thumbnailer) render(ctx context.Context, src string, width int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width*cfg.Height > t.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > width {
		// height 0 keeps the aspect ratio
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(thumbQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	t.logger.Debug().
		Str("src", src).
		Int("source_width", bounds.Dx()).
		Int("width", min(width, bounds.Dx())).
		Int("bytes", buf.Len()).
		Msg("Rendered thumbnail")

	return buf.Bytes(), nil
}
