package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.yhsif.com/ctxslog"

	"go.yhsif.com/img2gray"
	"go.yhsif.com/img2gray/logger"
	"go.yhsif.com/img2gray/media"
	"go.yhsif.com/img2gray/session"
)

const (
	cookieName     = "img2gray-session"
	formFieldImage = "image"
	queryPlatform  = "platform"
	queryURL       = "url"
)

// Multipart parts beyond this stay on disk until read.
const multipartMemory = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "healthy")
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func setSessionCookie(w http.ResponseWriter, id string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	ctx := s.logContext(r)
	var snap session.Snapshot
	if sess := s.getSession(sessionID(r), false); sess != nil {
		snap = sess.Snapshot()
	} else {
		snap.State = session.StateIdle
	}
	s.writePage(w, r, http.StatusOK, snap)
	logger.For(ctx).DebugContext(ctx, "Rendered page", "state", snap.State)
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, code int, snap session.Snapshot) {
	var buf bytes.Buffer
	if err := renderPage(&buf, snap); err != nil {
		ctx := s.logContext(r)
		logger.For(ctx).ErrorContext(ctx, "Failed to render page", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

func (s *Server) convertHandler(w http.ResponseWriter, r *http.Request) {
	ctx := s.logContext(r)
	if r.ContentLength > s.opts.MaxUploadBytes {
		http.Error(
			w,
			fmt.Sprintf("upload larger than %s", humanize.IBytes(uint64(s.opts.MaxUploadBytes))),
			http.StatusRequestEntityTooLarge,
		)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		code := http.StatusBadRequest
		if maxErr := new(http.MaxBytesError); errors.As(err, &maxErr) {
			code = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), code)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		http.Error(w, fmt.Sprintf("missing %q file: %v", formFieldImage, err), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mimeType := header.Header.Get("content-type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}
	src := img2gray.SourceImage{
		Data:     data,
		MimeType: mimeType,
		Filename: header.Filename,
	}
	ctx = ctxslog.Attach(
		ctx,
		"filename", src.Filename,
		"size", humanize.IBytes(uint64(len(data))),
	)

	id := sessionID(r)
	if id == "" {
		id = uuid.NewString()
	}
	setSessionCookie(w, id, int(s.opts.SessionTTL.Seconds()))
	sess := s.getSession(id, true)

	gen, err := sess.Submit(ctx, src)
	if err != nil {
		logger.For(ctx).WarnContext(ctx, "Submit failed", "err", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	snap, err := sess.Wait(r.Context(), gen)
	switch {
	case errors.Is(err, session.ErrSuperseded), errors.Is(err, session.ErrClosed):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		// Client went away, the session keeps the result.
		logger.For(ctx).DebugContext(ctx, "Stopped waiting", "err", err)
		return
	}

	switch snap.State {
	case session.StateReady:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case session.StateError:
		code := http.StatusInternalServerError
		if errors.Is(snap.Err, img2gray.ErrUnsupportedFormat) {
			code = http.StatusUnsupportedMediaType
		}
		s.writePage(w, r, code, snap)
	}
}

// refHandler serves the output reference of the caller's own session.
//
// Source references, and outputs of other sessions, are never served even
// though they live in the same registry.
func (s *Server) refHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(sessionID(r), false)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	art := sess.Artifact()
	if art == nil {
		http.NotFound(w, r)
		return
	}
	current := art.Ref()
	ref, ok := s.refs.Lookup(r.PathValue("id"))
	if !ok || current == nil || ref != current {
		http.NotFound(w, r)
		return
	}
	data := ref.Bytes()
	if data == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("content-type", ref.ContentType())
	w.Header().Set("content-length", strconv.Itoa(len(data)))
	w.Header().Set("cache-control", "private, no-cache")
	w.Write(data)
}

func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := s.logContext(r)
	sess := s.getSession(sessionID(r), false)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	art := sess.Artifact()
	if art == nil || art.ID != r.PathValue("id") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set(
		"content-disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, neturl.PathEscape(art.Filename)),
	)
	w.Header().Set("content-type", art.ContentType())
	w.Header().Set("content-length", strconv.Itoa(art.Len()))
	if _, err := art.WriteTo(w); err != nil {
		logger.For(ctx).WarnContext(ctx, "Failed to write download", "err", err)
		return
	}
	logger.For(ctx).InfoContext(
		ctx,
		"Served download",
		slog.String("filename", art.Filename),
		slog.String("size", humanize.IBytes(uint64(art.Len()))),
	)
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := s.logContext(r)
	if id := sessionID(r); id != "" {
		if s.dropSession(id) {
			logger.For(ctx).DebugContext(ctx, "Session reset")
		}
	}
	setSessionCookie(w, "", -1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type mediaQuery struct {
	Platform string `validate:"required,max=32"`
	URL      string `validate:"required,max=2048"`
}

func (s *Server) mediaHandler(w http.ResponseWriter, r *http.Request) {
	ctx := s.logContext(r)
	q := mediaQuery{
		Platform: r.PathValue(queryPlatform),
		URL:      r.FormValue(queryURL),
	}
	if q.Platform == "" {
		q.Platform = r.FormValue(queryPlatform)
	}
	if err := validate.Struct(q); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var p media.Platform
	if err := p.UnmarshalText([]byte(q.Platform)); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	ctx = ctxslog.Attach(ctx, "platform", p, "origUrl", q.URL)

	info, err := s.mediaService(p).FetchMediaInfo(ctx, q.URL)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, media.ErrInvalidURL) {
			code = http.StatusBadRequest
		}
		logger.For(ctx).DebugContext(ctx, "FetchMediaInfo failed", "err", err)
		http.Error(w, err.Error(), code)
		return
	}
	w.Header().Set("content-type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		logger.For(ctx).WarnContext(ctx, "Failed to write media info", "err", err)
	}
}
