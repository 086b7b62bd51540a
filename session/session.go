// Package session drives the img2gray pipeline as an explicit state machine.
//
// A Session holds at most one current run. Every Submit starts a new
// generation, supersedes the run in flight and discards its result, so the
// observable state always belongs to the latest submission.
package session // import "go.yhsif.com/img2gray/session"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.yhsif.com/ctxslog"

	"go.yhsif.com/img2gray"
	"go.yhsif.com/img2gray/grayscale"
	"go.yhsif.com/img2gray/logger"
	"go.yhsif.com/img2gray/refs"
)

// Errors returned by Session.
var (
	ErrClosed     = errors.New("session: closed")
	ErrSuperseded = errors.New("session: superseded by a newer submission")
)

// DecodeFunc is the signature of img2gray.Decode.
type DecodeFunc func(context.Context, img2gray.DecodeArgs) (*grayscale.PixelBuffer, error)

// TransformFunc is the signature of grayscale.TransformContext.
type TransformFunc func(ctx context.Context, buf *grayscale.PixelBuffer, workers int) error

// Options configures a Session.
type Options struct {
	// Registry for source and output references. Defaults to a private one.
	Refs *refs.Registry

	// See img2gray.ProcessArgs.
	Workers    int
	PreviewFit int
	MaxPixels  int64

	// Pipeline stages, default to img2gray.Decode and
	// grayscale.TransformContext.
	Decode    DecodeFunc
	Transform TransformFunc
}

// Snapshot is a consistent view of a Session.
type Snapshot struct {
	Generation uint64
	State      State

	// Original filename of the current submission.
	Filename string

	// Set only in StateReady.
	Artifact *img2gray.Artifact

	// Set only in StateError.
	Err error
}

// Session runs submissions one generation at a time.
type Session struct {
	opts Options

	mu       sync.Mutex
	gen      uint64
	state    State
	filename string
	artifact *img2gray.Artifact
	err      error
	cancel   context.CancelFunc
	done     chan struct{}
	changed  chan struct{}
	closed   bool
}

// New creates an idle Session.
func New(opts Options) *Session {
	if opts.Refs == nil {
		opts.Refs = refs.NewRegistry()
	}
	if opts.Decode == nil {
		opts.Decode = img2gray.Decode
	}
	if opts.Transform == nil {
		opts.Transform = grayscale.TransformContext
	}
	done := make(chan struct{})
	close(done)
	return &Session{
		opts:    opts,
		state:   StateIdle,
		done:    done,
		changed: make(chan struct{}),
	}
}

// Refs returns the registry used by the session.
func (s *Session) Refs() *refs.Registry {
	return s.opts.Refs
}

// Submit starts processing src and returns its generation.
//
// The run in flight, if any, is canceled and its result will be discarded.
// The previous artifact is released. The run itself outlives ctx, only the
// values (logger, log attributes) of ctx are kept.
func (s *Session) Submit(ctx context.Context, src img2gray.SourceImage) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	s.releaseArtifactLocked()
	s.filename = src.Filename
	s.err = nil
	s.setStateLocked(eventSubmit)

	ctx = ctxslog.Attach(
		context.WithoutCancel(ctx),
		"generation", gen,
		"filename", src.Filename,
	)
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	prev := s.done
	done := make(chan struct{})
	s.done = done
	go s.run(ctx, gen, src, prev, done)
	return gen, nil
}

func (s *Session) run(
	ctx context.Context,
	gen uint64,
	src img2gray.SourceImage,
	prev <-chan struct{},
	done chan<- struct{},
) {
	defer close(done)
	// Runs don't overlap, so at most one source reference is live.
	<-prev

	buf, err := s.opts.Decode(ctx, img2gray.DecodeArgs{
		Source:    src,
		Refs:      s.opts.Refs,
		MaxPixels: s.opts.MaxPixels,
	})
	if err != nil {
		s.advance(ctx, gen, eventDecodeFailed, err)
		return
	}
	if !s.advance(ctx, gen, eventDecodeComplete, nil) {
		return
	}

	art, err := s.transform(ctx, buf, src.Filename)
	if err != nil {
		s.advance(ctx, gen, eventTransformFailed, err)
		return
	}
	s.publish(ctx, gen, art)
}

func (s *Session) transform(
	ctx context.Context,
	buf *grayscale.PixelBuffer,
	filename string,
) (*img2gray.Artifact, error) {
	if err := s.opts.Transform(ctx, buf, s.opts.Workers); err != nil {
		return nil, err
	}
	return img2gray.Encode(img2gray.EncodeArgs{
		Buffer:     buf,
		Filename:   filename,
		PreviewFit: s.opts.PreviewFit,
	})
}

// advance applies ev if gen is still current, and reports whether it did.
func (s *Session) advance(ctx context.Context, gen uint64, ev event, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		logger.For(ctx).DebugContext(
			ctx,
			"session: dropping stale result",
			"event", ev,
			"current", s.gen,
			"err", err,
		)
		return false
	}
	if !s.setStateLocked(ev) {
		logger.For(ctx).ErrorContext(
			ctx,
			"session: invalid transition",
			"state", s.state,
			"event", ev,
		)
		return false
	}
	s.err = err
	if err != nil {
		logger.For(ctx).WarnContext(
			ctx,
			"session: run failed",
			"event", ev,
			"err", err,
		)
	}
	return true
}

// publish makes art the current artifact if gen is still current.
//
// The output reference is only acquired under the lock for the current
// generation, so stale results never hold one.
func (s *Session) publish(ctx context.Context, gen uint64, art *img2gray.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		logger.For(ctx).DebugContext(
			ctx,
			"session: dropping stale artifact",
			"id", art.ID,
			"current", s.gen,
		)
		return
	}
	if err := art.Publish(s.opts.Refs); err != nil {
		s.err = fmt.Errorf("session: unable to publish artifact: %w", err)
		s.setStateLocked(eventTransformFailed)
		logger.For(ctx).ErrorContext(ctx, "session: publish failed", "err", err)
		return
	}
	s.artifact = art
	s.setStateLocked(eventTransformComplete)
	logger.For(ctx).InfoContext(
		ctx,
		"session: ready",
		slog.String("id", art.ID),
		slog.String("output", art.Filename),
		slog.Int("width", art.Width),
		slog.Int("height", art.Height),
	)
}

func (s *Session) setStateLocked(ev event) bool {
	to, ok := next(s.state, ev)
	if !ok {
		return false
	}
	s.state = to
	close(s.changed)
	s.changed = make(chan struct{})
	return true
}

func (s *Session) releaseArtifactLocked() {
	if s.artifact != nil {
		s.artifact.Release()
		s.artifact = nil
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Generation: s.gen,
		State:      s.state,
		Filename:   s.filename,
		Artifact:   s.artifact,
		Err:        s.err,
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Artifact returns the current artifact, or nil unless the session is ready.
func (s *Session) Artifact() *img2gray.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// Wait blocks until generation gen reaches a terminal state.
//
// It returns ErrSuperseded if a newer submission replaced gen before that,
// and ErrClosed if the session was closed.
func (s *Session) Wait(ctx context.Context, gen uint64) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap := s.snapshotLocked()
		closed := s.closed
		changed := s.changed
		s.mu.Unlock()

		switch {
		case closed:
			return snap, ErrClosed
		case gen < snap.Generation:
			return snap, ErrSuperseded
		case gen == snap.Generation && snap.State.Terminal():
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// Close cancels the run in flight, releases the current artifact, and waits
// for the run to return.
//
// Submit fails with ErrClosed afterwards. It's safe to call Close multiple
// times.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	s.releaseArtifactLocked()
	s.state = StateIdle
	s.err = nil
	close(s.changed)
	s.changed = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}
