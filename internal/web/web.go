// Package web is the browser front end: an upload page, the split action and
// the tile downloads. Every upload gets its own quadjpeg.Session, held until
// the user resets it or the server evicts it to make room.
package web

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/dlecorfec/quadjpeg"
)

// User-visible notifications.
const (
	msgInvalidInput = "Please upload an image file (PNG, JPG, WEBP)."
	msgNoFile       = "Please choose an image to upload."
	msgTooLarge     = "That file is too large to upload."
	msgTooManyPx    = "That image has too many pixels to split."
	msgSplitFailed  = "Could not split this image."
	msgSuccess      = "Successfully split into 4 photos!"
)

const (
	archiveName  = "quadrants.zip"
	originalName = "original"
)

// Config holds the server settings. Zero fields take their defaults.
type Config struct {
	// MaxUploadBytes caps the size of an uploaded file. Default 32 MiB.
	MaxUploadBytes int64

	// MaxPixels caps the width times height of an uploaded image. It is
	// checked from the image header, before decoding. Default
	// quadjpeg.DefaultMaxPixels.
	MaxPixels int64

	// MaxSessions is the number of split results kept for download. The
	// oldest session is dropped when a new one would exceed it. Default 16.
	MaxSessions int

	// Progressive makes the tiles progressive JPEGs.
	Progressive bool

	// Logger receives request and encoder logs. Default log.Default().
	Logger *log.Logger

	// Verbose also logs every encoding attempt.
	Verbose bool
}

func (c Config) withDefaults() Config {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = quadjpeg.DefaultMaxPixels
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 16
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

type entry struct {
	session *quadjpeg.Session
	name    string
	created time.Time

	// original is the uploaded file, served back as the preview.
	original     []byte
	originalType string
}

// snapshot is what a request may read of an entry after the lock is
// released.
type snapshot struct {
	results      []quadjpeg.Result
	created      time.Time
	original     []byte
	originalType string
}

// Server serves the split UI. It is an http.Handler.
type Server struct {
	cfg  Config
	mux  *http.ServeMux
	page *template.Template

	mu       sync.Mutex
	sessions map[string]*entry
	order    []string // session ids, oldest first
}

// New returns a Server with the given configuration.
func New(cfg Config) *Server {
	s := &Server{
		cfg:      cfg.withDefaults(),
		mux:      http.NewServeMux(),
		page:     template.Must(template.New("page").Parse(pageHTML)),
		sessions: make(map[string]*entry),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /split", s.handleSplit)
	s.mux.HandleFunc("GET /tiles/{id}/"+archiveName, s.handleArchive)
	s.mux.HandleFunc("GET /tiles/{id}/"+originalName, s.handleOriginal)
	s.mux.HandleFunc("GET /tiles/{id}/{name}", s.handleTile)
	s.mux.HandleFunc("POST /sessions/{id}/reset", s.handleReset)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageView{})
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, http.StatusRequestEntityTooLarge, msgTooLarge, err)
		} else {
			s.fail(w, r, http.StatusBadRequest, msgNoFile, err)
		}
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, msgNoFile, err)
		return
	}

	img, format, err := quadjpeg.DecodeLimit(bytes.NewReader(data), header.Header.Get("Content-Type"), s.cfg.MaxPixels)
	switch {
	case errors.Is(err, quadjpeg.ErrTooLarge):
		s.fail(w, r, http.StatusRequestEntityTooLarge, msgTooManyPx, err)
		return
	case errors.Is(err, quadjpeg.ErrInvalidInput):
		s.fail(w, r, http.StatusUnsupportedMediaType, msgInvalidInput, err)
		return
	case err != nil:
		s.fail(w, r, http.StatusUnprocessableEntity, msgInvalidInput, err)
		return
	}

	enc := &quadjpeg.Encoder{Progressive: s.cfg.Progressive}
	if s.cfg.Verbose {
		enc.Logger = s.cfg.Logger
	}
	sess := quadjpeg.NewSession(img, enc)
	results, err := sess.Process()
	if err != nil {
		s.fail(w, r, http.StatusUnprocessableEntity, msgSplitFailed, err)
		return
	}
	id, err := s.store(&entry{
		session:      sess,
		name:         header.Filename,
		original:     data,
		originalType: "image/" + format,
	})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgSplitFailed, err)
		return
	}
	b := img.Bounds()
	s.cfg.Logger.Printf("web: split %q (%s, %dx%d) into session %s", header.Filename, format, b.Dx(), b.Dy(), id)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, newSplitResponse(id, results))
		return
	}
	s.render(w, http.StatusOK, newPageView(printerFor(r), id, header.Filename, b, results))
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	label, ok := quadjpeg.ParseFilename(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	snap, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	for _, res := range snap.results {
		if res.Label != label {
			continue
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", label.Filename()))
		w.Header().Set("Content-Length", fmt.Sprint(res.Len()))
		w.Write(res.Data)
		return
	}
	http.NotFound(w, r)
}

// handleArchive bundles the four tiles into one zip file. The tiles are
// stored rather than deflated since JPEG data does not compress further.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archiveName))
	zw := zip.NewWriter(w)
	for _, res := range snap.results {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     res.Label.Filename(),
			Method:   zip.Store,
			Modified: snap.created,
		})
		if err != nil {
			s.cfg.Logger.Printf("web: archive %s: %v", r.PathValue("id"), err)
			return
		}
		if _, err := fw.Write(res.Data); err != nil {
			s.cfg.Logger.Printf("web: archive %s: %v", r.PathValue("id"), err)
			return
		}
	}
	if err := zw.Close(); err != nil {
		s.cfg.Logger.Printf("web: archive %s: %v", r.PathValue("id"), err)
	}
}

// handleOriginal serves the uploaded file unchanged, for the preview next to
// the tiles.
func (s *Server) handleOriginal(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", snap.originalType)
	w.Header().Set("Content-Length", fmt.Sprint(len(snap.original)))
	w.Write(snap.original)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.remove(id) {
		http.NotFound(w, r)
		return
	}
	s.cfg.Logger.Printf("web: reset session %s", id)
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail reports err in the log and shows the user exactly one notification.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	s.cfg.Logger.Printf("web: %s %s: %v", r.Method, r.URL.Path, err)
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	s.render(w, status, pageView{Notice: msg})
}

func (s *Server) render(w http.ResponseWriter, status int, v pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, v); err != nil {
		s.cfg.Logger.Printf("web: render: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// store registers a processed session and returns its id, evicting the
// oldest sessions beyond the configured limit.
func (s *Server) store(e *entry) (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	id := hex.EncodeToString(raw[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	e.created = time.Now()
	s.sessions[id] = e
	s.order = append(s.order, id)
	for len(s.order) > s.cfg.MaxSessions {
		old := s.order[0]
		s.order = s.order[1:]
		if ev, ok := s.sessions[old]; ok {
			ev.session.Reset()
			delete(s.sessions, old)
			s.cfg.Logger.Printf("web: evicted session %s (%s)", old, ev.name)
		}
	}
	return id, nil
}

// lookup returns a snapshot of a session. The tile and upload bytes are
// never modified, so they can be served after the lock is released.
func (s *Server) lookup(id string) (snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return snapshot{}, false
	}
	return snapshot{
		results:      append([]quadjpeg.Result(nil), e.session.Results()...),
		created:      e.created,
		original:     e.original,
		originalType: e.originalType,
	}, true
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return false
	}
	e.session.Reset()
	delete(s.sessions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
