// Package server serves a site directory (viewer, manifests, frames) over
// HTTP for local preview.
package server

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pithecene-io/lapse/log"
)

// DefaultAddr is the default listen address.
const DefaultAddr = ":8000"

// DefaultNoStore lists file names served with Cache-Control: no-store.
var DefaultNoStore = []string{"manifest.json", "manifest.json.gz"}

// mimeTypes maps lowercase extensions to Content-Type values.
var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".gz":   "application/gzip",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".mp4":  "video/mp4",
}

// ContentType returns the Content-Type for name, falling back to
// application/octet-stream.
func ContentType(name string) string {
	if ct, ok := mimeTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Options configures a Server.
type Options struct {
	Logger *log.Logger
	// NoStore lists base names never cached by clients
	// (default DefaultNoStore).
	NoStore []string
}

// Server serves files under a root directory.
type Server struct {
	root    string
	noStore []string
	logger  *log.Logger
	router  chi.Router
}

// New creates a Server for root.
func New(root string, opts Options) *Server {
	s := &Server{
		root:    root,
		noStore: opts.NoStore,
		logger:  opts.Logger,
	}
	if len(s.noStore) == 0 {
		s.noStore = DefaultNoStore
	}
	if s.logger == nil {
		s.logger = log.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/*", s.serveFile)
	r.Head("/*", s.serveFile)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving", map[string]any{"root": s.root, "addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// resolve maps a URL path to a file under root. Cleaning the rooted path
// drops any ".." that would escape root.
func (s *Server) resolve(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	return filepath.Join(s.root, filepath.FromSlash(clean))
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := s.resolve(r.URL.Path)

	info, err := os.Stat(name)
	if err == nil && info.IsDir() {
		name = filepath.Join(name, "index.html")
		info, err = os.Stat(name)
	}
	if err == nil && info.IsDir() {
		err = fs.ErrNotExist
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	f, err := os.Open(name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", ContentType(name))
	if slices.Contains(s.noStore, filepath.Base(name)) {
		w.Header().Set("Cache-Control", "no-store")
	}
	http.ServeContent(w, r, filepath.Base(name), info.ModTime(), f)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	s.logger.Error("serve file", map[string]any{"path": r.URL.Path, "error": err.Error()})
	http.Error(w, "Server error", http.StatusInternalServerError)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}
