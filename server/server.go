// Package server serves the img2gray pipeline over HTTP.
//
// Every browser gets its own session.Session, keyed by a cookie. The page at
// / shows the upload form, the state of the current conversion, and the
// preview and download links once it's ready.
package server // import "go.yhsif.com/img2gray/server"

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.yhsif.com/ctxslog"

	"go.yhsif.com/img2gray/logger"
	"go.yhsif.com/img2gray/media"
	"go.yhsif.com/img2gray/refs"
	"go.yhsif.com/img2gray/session"
)

// Defaults used when the corresponding Options field is not positive.
const (
	DefaultMaxUploadBytes = 20 << 20
	DefaultSessionTTL     = 30 * time.Minute
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	minSweepInterval  = time.Second
)

// Options configures a Server.
type Options struct {
	MaxUploadBytes int64
	SessionTTL     time.Duration

	// See session.Options.
	Workers    int
	PreviewFit int
	MaxPixels  int64

	// Simulated delay of the media stubs, see media.Stub.
	MediaDelay time.Duration
}

type entry struct {
	session  *session.Session
	lastSeen time.Time
}

// Server is an http.Handler.
//
// It logs through slog.Default(), with request attributes attached via
// ctxslog.Attach.
type Server struct {
	opts Options
	refs *refs.Registry
	mux  *http.ServeMux

	mu       sync.Mutex
	sessions map[string]*entry
}

var _ http.Handler = (*Server)(nil)

// New creates a Server.
func New(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	s := &Server{
		opts:     opts,
		refs:     refs.NewRegistry(),
		mux:      http.NewServeMux(),
		sessions: make(map[string]*entry),
	}
	s.mux.HandleFunc("GET /{$}", s.rootHandler)
	s.mux.HandleFunc("POST /convert", s.convertHandler)
	s.mux.HandleFunc("GET /ref/{id}", s.refHandler)
	s.mux.HandleFunc("GET /download/{id}", s.downloadHandler)
	s.mux.HandleFunc("POST /reset", s.resetHandler)
	s.mux.HandleFunc("GET /api/media", s.mediaHandler)
	s.mux.HandleFunc("GET /api/media/{platform}", s.mediaHandler)
	s.mux.HandleFunc("GET /_ah/health", healthCheckHandler)
	return s
}

// Refs returns the registry shared by all sessions.
func (s *Server) Refs() *refs.Registry {
	return s.refs
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) logContext(r *http.Request) context.Context {
	return ctxslog.Attach(
		r.Context(),
		"method", r.Method,
		"path", r.URL.Path,
		"remoteIP", r.RemoteAddr,
		"userAgent", r.UserAgent(),
	)
}

func (s *Server) mediaService(p media.Platform) media.Service {
	return media.Stub{
		Platform: p,
		Delay:    s.opts.MediaDelay,
	}
}

// getSession returns the session for id, creating one if create is true.
func (s *Server) getSession(id string, create bool) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		if !create {
			return nil
		}
		e = &entry{
			session: session.New(session.Options{
				Refs:       s.refs,
				Workers:    s.opts.Workers,
				PreviewFit: s.opts.PreviewFit,
				MaxPixels:  s.opts.MaxPixels,
			}),
		}
		s.sessions[id] = e
	}
	e.lastSeen = time.Now()
	return e.session
}

// dropSession closes and forgets the session for id.
func (s *Server) dropSession(id string) bool {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		e.session.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes the sessions not seen since now - SessionTTL, and returns how
// many were closed.
func (s *Server) Sweep(now time.Time) int {
	deadline := now.Add(-s.opts.SessionTTL)
	var expired []*session.Session
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastSeen.Before(deadline) {
			expired = append(expired, e.session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, sess := range expired {
		sess.Close()
	}
	return len(expired)
}

// Close closes every session.
func (s *Server) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()
	for _, e := range sessions {
		e.session.Close()
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	interval := max(s.opts.SessionTTL/4, minSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				logger.For(ctx).DebugContext(ctx, "Evicted idle sessions", "n", n)
			}
		}
	}
}

// ListenAndServe serves s on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sweepLoop(ctx)
	defer s.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	errCh := make(chan error, 1)
	go func() {
		logger.For(ctx).InfoContext(ctx, "Started listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
