// Package api exposes the director commands over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ivlev/replaydirector/internal/director"
	"github.com/ivlev/replaydirector/internal/history"
	"github.com/ivlev/replaydirector/internal/host"
	"github.com/ivlev/replaydirector/internal/logging"
	"github.com/ivlev/replaydirector/internal/renderer"
	"github.com/ivlev/replaydirector/internal/selection"
	"github.com/ivlev/replaydirector/internal/sequence"
	"github.com/ivlev/replaydirector/internal/store"
)

// SyncState reports the state of the playback sync loop.
type SyncState interface {
	State() renderer.State
}

type Server struct {
	Manager  *director.Manager
	Sync     SyncState
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewHandler routes the command surface to s. A nil Gatherer disables
// /metrics.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}

	r := chi.NewRouter()
	r.Get("/status", s.status)
	r.Get("/parameters", s.parameters)

	r.Get("/sequences", s.listSequences)
	r.Post("/sequences", s.createSequence)
	r.Post("/sequences/copy", s.copySequence)
	r.Put("/sequences/active", s.switchSequence)
	r.Delete("/sequences/{name}", s.deleteSequence)
	r.Put("/directory", s.switchDirectory)

	r.Get("/mirror", s.listMirror)
	r.Post("/mirror/restore", s.restoreSequence)

	r.Get("/sequence", s.getSequence)
	r.Put("/sequence/bounds", s.setBounds)
	r.Put("/sequencing", s.setSequencing)
	r.Post("/sequence/play", s.playSequence)

	r.Post("/keyframes", s.addKeyframe)
	r.Delete("/keyframes", s.clearKeyframes)
	r.Delete("/keyframes/selected", s.deleteSelected)
	r.Post("/keyframes/move", s.moveKeyframe)

	r.Get("/selection", s.getSelection)
	r.Post("/selection", s.selectKeys)
	r.Delete("/selection", s.clearSelection)
	r.Post("/selection/{mode}", s.selectMode)
	r.Post("/seek-selected", s.seekSelected)

	r.Post("/undo", s.undo)
	r.Post("/redo", s.redo)

	r.Post("/playback/toggle", s.togglePlayback)
	r.Post("/playback/adjust", s.adjustTime)

	r.Get("/bindings", s.listBindings)
	r.Post("/bindings/{name}", s.invokeBinding)

	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// StatusCode maps command errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, sequence.ErrNotFound),
		errors.Is(err, director.ErrNoActiveSequence):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateName),
		errors.Is(err, history.ErrEmptyHistory):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotADirectory),
		errors.Is(err, store.ErrInvalidName),
		errors.Is(err, sequence.ErrUnknownParameter),
		errors.Is(err, sequence.ErrKindMismatch),
		errors.Is(err, sequence.ErrInvalidTime),
		errors.Is(err, sequence.ErrInvalidBounds):
		return http.StatusBadRequest
	case store.IsCorrupt(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, director.ErrNoMirror):
		return http.StatusNotImplemented
	case errors.Is(err, host.ErrHostUnreachable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.Logger.Error("command failed", "path", r.URL.Path, "error", err)
	} else {
		s.Logger.Debug("command rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// respond writes the status after a successful command, or the error.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.status(w, r)
}

type statusResponse struct {
	director.Status
	Sync string `json:"sync"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.Manager.Status(), Sync: renderer.Idle.String()}
	if s.Sync != nil {
		resp.Sync = s.Sync.State().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

type parameterInfo struct {
	Name string        `json:"name"`
	Kind sequence.Kind `json:"kind"`
}

func (s *Server) parameters(w http.ResponseWriter, r *http.Request) {
	var out []parameterInfo
	for _, name := range sequence.Catalog() {
		kind, _ := sequence.ParameterKind(name)
		out = append(out, parameterInfo{Name: name, Kind: kind})
	}
	writeJSON(w, http.StatusOK, out)
}

type sequenceInfo struct {
	Name      string    `json:"name"`
	ModTime   time.Time `json:"modTime"`
	Corrupt   bool      `json:"corrupt"`
	Error     string    `json:"error,omitempty"`
	Keyframes int       `json:"keyframes"`
}

func (s *Server) listSequences(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Manager.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]sequenceInfo, 0, len(entries))
	for _, e := range entries {
		info := sequenceInfo{Name: e.Name, ModTime: e.ModTime, Corrupt: e.Corrupt()}
		if e.Err != nil {
			info.Error = e.Err.Error()
		} else {
			info.Keyframes = e.Sequence.KeyframeCount()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) createSequence(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.Create(r.Context(), req.Name))
}

func (s *Server) copySequence(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.Copy(r.Context(), req.Name))
}

func (s *Server) switchSequence(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.Switch(r.Context(), req.Name))
}

func (s *Server) deleteSequence(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.Manager.Delete(r.Context(), chi.URLParam(r, "name")))
}

func (s *Server) listMirror(w http.ResponseWriter, r *http.Request) {
	names, err := s.Manager.MirrorList(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) restoreSequence(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.Restore(r.Context(), req.Name))
}

func (s *Server) switchDirectory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.SwitchDirectory(r.Context(), req.Path))
}

// getSequence returns the active sequence in its file format.
func (s *Server) getSequence(w http.ResponseWriter, r *http.Request) {
	seq, err := s.Manager.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := sequence.Marshal(seq)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(data)
}

func (s *Server) setBounds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartTime float64 `json:"startTime"`
		EndTime   float64 `json:"endTime"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.SetBounds(req.StartTime, req.EndTime))
}

func (s *Server) setSequencing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.SetSequencing(r.Context(), req.Enabled))
}

func (s *Server) playSequence(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.Manager.PlaySequence(r.Context()))
}

var errTimeValuePair = errors.New("time and value must be given together")

type keyframeRequest struct {
	Parameter string `json:"parameter"`
	// Time and Value are given together or not at all. Without them the
	// host's current value is captured at the current playback time.
	Time  *float64 `json:"time"`
	Value any      `json:"value"`
}

func (s *Server) addKeyframe(w http.ResponseWriter, r *http.Request) {
	var req keyframeRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if (req.Time == nil) != (req.Value == nil) {
		s.badRequest(w, r, errTimeValuePair)
		return
	}
	if req.Time == nil {
		s.respond(w, r, s.Manager.AddKeyframe(r.Context(), req.Parameter))
		return
	}

	kind, err := sequence.ParameterKind(req.Parameter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := host.DecodeValue(kind, req.Value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.AddKeyframeAt(req.Parameter, *req.Time, v))
}

func (s *Server) clearKeyframes(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.Manager.ClearKeyframes())
}

func (s *Server) deleteSelected(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.Manager.DeleteSelected())
}

func (s *Server) moveKeyframe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parameter string  `json:"parameter"`
		From      float64 `json:"from"`
		To        float64 `json:"to"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.MoveKeyframe(req.Parameter, req.From, req.To))
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request) {
	keys := s.Manager.Selection()
	if keys == nil {
		keys = []selection.Key{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) selectKeys(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []selection.Key `json:"keys"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if err := s.Manager.Select(req.Keys...); err != nil {
		s.fail(w, r, err)
		return
	}
	s.getSelection(w, r)
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	s.Manager.ClearSelection()
	s.getSelection(w, r)
}

func (s *Server) selectMode(w http.ResponseWriter, r *http.Request) {
	var err error
	switch chi.URLParam(r, "mode") {
	case "next":
		err = s.Manager.SelectNext()
	case "prev":
		err = s.Manager.SelectPrev()
	case "adjacent":
		err = s.Manager.SelectAdjacent()
	case "all":
		err = s.Manager.SelectAll()
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown selection mode"})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.getSelection(w, r)
}

func (s *Server) seekSelected(w http.ResponseWriter, r *http.Request) {
	t, ok, err := s.Manager.SeekSelected(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Time   float64 `json:"time"`
		Sought bool    `json:"sought"`
	}{t, ok})
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.Manager.Undo())
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.Manager.Redo())
}

func (s *Server) togglePlayback(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.Manager.TogglePlayback(r.Context()))
}

func (s *Server) adjustTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta float64 `json:"delta"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.respond(w, r, s.Manager.AdjustTime(r.Context(), req.Delta))
}

func (s *Server) listBindings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, director.Bindings())
}

// invokeBinding runs the request bound to a key binding name. Create and
// copy bindings take the new name from an optional JSON body.
func (s *Server) invokeBinding(w http.ResponseWriter, r *http.Request) {
	req, ok := director.Binding(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown binding"})
		return
	}
	if r.ContentLength > 0 {
		var body nameRequest
		if err := decode(r, &body); err != nil {
			s.badRequest(w, r, err)
			return
		}
		req.Name = body.Name
	}
	s.respond(w, r, s.Manager.Dispatch(r.Context(), req))
}
