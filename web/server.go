// Package web serves the figure collection as server-rendered pages on top of the catalog services.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/s0up4200/figureshelf/apiclient"
	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/filter"
)

const shutdownTimeout = 10 * time.Second

var (
	ErrNoClient      = errors.New("web: api client is required")
	ErrClientScope   = errors.New("web: api client must be service scoped")
	ErrInvalidTarget = errors.New("web: backend base url is invalid")
)

// Options configures the web server
type Options struct {
	// Client is the service-scoped backend client. Requests carrying token cookies use a user view of it.
	Client        *apiclient.Client
	Filters       *filter.Manager
	PageSize      int
	SecureCookies bool
	Thumbnails    ThumbnailOptions
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	Logger        zerolog.Logger
}

// Server is the gin front end
type Server struct {
	engine        *gin.Engine
	client        *apiclient.Client
	filters       *filter.Manager
	thumbs        *Thumbnailer
	pageSize      int
	secureCookies bool
	readTimeout   time.Duration
	writeTimeout  time.Duration
	logger        zerolog.Logger
}

// NewServer builds the engine, templates and routes
func NewServer(opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, ErrNoClient
	}
	if opts.Client.Scope() != apiclient.ScopeService {
		return nil, ErrClientScope
	}

	target, err := url.Parse(opts.Client.BaseURL())
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, opts.Client.BaseURL())
	}

	s := &Server{
		client:        opts.Client,
		filters:       opts.Filters,
		pageSize:      opts.PageSize,
		secureCookies: opts.SecureCookies,
		readTimeout:   opts.ReadTimeout,
		writeTimeout:  opts.WriteTimeout,
		logger:        opts.Logger,
	}
	if s.filters == nil {
		s.filters = filter.NewManager()
	}
	if s.pageSize < 1 {
		s.pageSize = catalog.DefaultPageLimit
	}
	if opts.Thumbnails.Enabled {
		// Backend images are always allowed
		thumbOpts := opts.Thumbnails
		thumbOpts.AllowedHosts = append(slices.Clone(thumbOpts.AllowedHosts), target.Hostname())
		s.thumbs = NewThumbnailer(thumbOpts, opts.Logger)
	}

	tmpl, err := parseTemplates(s.thumbs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s.engine = gin.New()
	s.engine.Use(RequestID(), Logger(opts.Logger), Recovery(opts.Logger))
	s.engine.SetHTMLTemplate(tmpl)
	s.registerRoutes(newBackendProxy(target, opts.Logger))

	return s, nil
}

func (s *Server) registerRoutes(proxy http.Handler) {
	r := s.engine

	r.GET("/healthz", s.health)
	r.GET("/", s.index)
	r.GET("/figures/more", s.moreFigures)
	r.GET("/figures/:id", s.showFigure)
	r.POST("/figures", s.createFigure)
	r.POST("/figures/:id", s.updateFigure)
	r.POST("/figures/:id/seal", s.sealFigure)
	if s.thumbs != nil {
		r.GET("/img", s.thumbnail)
	}
	r.Any("/api/*path", gin.WrapH(proxy))
}

// Handler exposes the engine for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("backend", s.client.BaseURL()).Msg("Starting web server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	return nil
}

// services returns the catalog services for this request.
// Token cookies switch them to the user scope; the returned credentials are nil otherwise.
func (s *Server) services(c *gin.Context) (*catalog.Services, *cookieCredentials) {
	logger := requestLogger(c)
	if creds, ok := credentialsFromRequest(c); ok {
		return catalog.NewServices(s.client.ForUser(creds), logger), creds
	}
	return catalog.NewServices(s.client, logger), nil
}
