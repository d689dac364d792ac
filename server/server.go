// Package server hosts widgets in the browser.
//
// Every websocket connection gets its own widget seeded from the current
// graph. The browser forwards pointer events as JSON and replays the draw
// operations of each frame onto a canvas.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/TFMV/webgraph/ingest"
	"github.com/TFMV/webgraph/logging"
	"github.com/TFMV/webgraph/metrics"
	"github.com/TFMV/webgraph/models"
	"github.com/TFMV/webgraph/physics"
	"github.com/TFMV/webgraph/render"
	"github.com/TFMV/webgraph/widget"
)

// Limits for the headless render endpoint
const (
	DefaultRenderTicks = 300
	MaxRenderTicks     = 10000
	maxUploadSize      = 1 << 20
)

// Config for the server
type Config struct {
	Addr       string
	Size       models.Size
	PixelRatio float64
	FrameRate  int
	Dispatch   widget.Dispatch
	Layout     physics.Options
	// ScatterSeed places seed nodes that carry no position
	ScatterSeed int64
	// LoadSeed produces the graph every new session starts from
	LoadSeed func() (*ingest.Seed, error)
	// WatchPath is reloaded through LoadSeed whenever it changes; empty
	// disables watching
	WatchPath string
	Logger    *log.Logger
	Metrics   *metrics.Collector
}

// Server serves the canvas page, the websocket sessions and the graph API
type Server struct {
	cfg      Config
	logger   *log.Logger
	metrics  *metrics.Collector
	router   chi.Router
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	seed     *ingest.Seed
	sessions map[string]*Session
}

// New creates a server and loads the initial seed
func New(cfg Config) (*Server, error) {
	if cfg.Size.Width <= 0 || cfg.Size.Height <= 0 {
		return nil, fmt.Errorf("surface size %v must be positive", cfg.Size)
	}
	if cfg.PixelRatio <= 0 {
		cfg.PixelRatio = 1
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = widget.DefaultFrameRate
	}
	if cfg.LoadSeed == nil {
		cfg.LoadSeed = func() (*ingest.Seed, error) { return &ingest.Seed{}, nil }
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	seed, err := cfg.LoadSeed()
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		seed:     seed,
		sessions: make(map[string]*Session),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGetGraph)
		r.Post("/graph", s.handlePostGraph)
		r.Get("/render/{format}", s.handleRender)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Seed returns the graph new sessions start from
func (s *Server) Seed() *ingest.Seed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seed
}

// SessionCount returns the number of connected sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SetSeed replaces the seed and asks every connected browser to reconnect
func (s *Server) SetSeed(seed *ingest.Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.seed = seed
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.notify(notice{Reload: true})
	}
	s.logger.Info("graph replaced", "nodes", len(seed.Nodes), "edges", len(seed.Edges), "sessions", len(sessions))
	return nil
}

// Reload runs LoadSeed again and installs the result
func (s *Server) Reload() error {
	seed, err := s.cfg.LoadSeed()
	if err != nil {
		return fmt.Errorf("reload seed: %w", err)
	}
	return s.SetSeed(seed)
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if s.cfg.WatchPath != "" {
		go func() {
			if err := s.Watch(ctx, s.cfg.WatchPath); err != nil {
				s.logger.Error("seed watcher stopped", "path", s.cfg.WatchPath, "err", err)
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.logger.Info("serving", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// hijacked websocket connections are not closed by Shutdown
	s.closeSessions()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newWidget builds a widget holding seed
func (s *Server) newWidget(seed *ingest.Seed) *widget.Widget {
	w := widget.New(s.cfg.Size,
		widget.WithLogger(s.logger),
		widget.WithLayoutOptions(s.cfg.Layout),
		widget.WithDispatch(s.cfg.Dispatch),
		widget.WithPixelRatio(s.cfg.PixelRatio),
		widget.WithMetrics(s.metrics),
	)
	if _, err := seed.Apply(w, s.cfg.Size, s.cfg.ScatterSeed); err != nil {
		s.logger.Warn("seed partially applied", "err", err)
	}
	return w
}

func (s *Server) closeSessions() {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.close()
	}
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.Seed()); err != nil {
		s.logger.Warn("encode graph", "err", err)
	}
}

// handlePostGraph replaces the seed with the request body. The format comes
// from the format query parameter or else the content type.
func (s *Server) handlePostGraph(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatFromContentType(r.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "Error reading graph: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	seed, err := ingest.Parse(data, format)
	if err != nil {
		http.Error(w, "Error processing graph: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.SetSeed(seed); err != nil {
		http.Error(w, "Invalid graph: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(chi.URLParam(r, "format"))

	ticks := DefaultRenderTicks
	if v := r.URL.Query().Get("ticks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > MaxRenderTicks {
			http.Error(w, fmt.Sprintf("ticks must be within 0..%d", MaxRenderTicks), http.StatusBadRequest)
			return
		}
		ticks = n
	}

	doc, err := render.NewSurface(format, s.cfg.Size)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wg := s.newWidget(s.Seed())
	if err := wg.Render(doc, ticks); err != nil {
		http.Error(w, "Error rendering graph: "+err.Error(), http.StatusInternalServerError)
		return
	}
	output, err := doc.Bytes()
	if err != nil {
		http.Error(w, "Error encoding graph: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	_, _ = w.Write(output)
}

func contentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "json":
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

func formatFromContentType(value string) string {
	mt, _, err := mime.ParseMediaType(value)
	if err != nil {
		return "json"
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return "yaml"
	case "application/toml":
		return "toml"
	case "text/csv":
		return "csv"
	case "text/plain":
		return "log"
	default:
		return "json"
	}
}
