package hub

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dukerupert/freezer/internal/notify"
	"github.com/dukerupert/freezer/internal/remote"
)

// Request bodies are capped; a household document is small.
const maxBody = 4 << 20

type recordRequest struct {
	Payload       []byte    `json:"payload" validate:"required"`
	UpdatedAt     time.Time `json:"updated_at"`
	HouseholdID   string    `json:"household_id" validate:"max=64"`
	HouseholdName string    `json:"household_name" validate:"max=200"`
}

type shareRoot struct {
	Name          string    `json:"name" validate:"required,max=200"`
	Payload       []byte    `json:"payload"`
	UpdatedAt     time.Time `json:"updated_at"`
	HouseholdID   string    `json:"household_id" validate:"max=64"`
	HouseholdName string    `json:"household_name" validate:"max=200"`
}

type shareBody struct {
	Permission remote.Permission `json:"permission" validate:"required,oneof=read_only read_write"`
	Title      string            `json:"title" validate:"max=200"`
}

type shareRequest struct {
	Root  shareRoot `json:"root"`
	Share shareBody `json:"share"`
}

type acceptRequest struct {
	URL            string            `json:"url" validate:"required"`
	RootRecordName string            `json:"root_record_name" validate:"required,max=200"`
	Permission     remote.Permission `json:"permission" validate:"omitempty,oneof=read_only read_write"`
	Title          string            `json:"title"`
}

// decode reads a JSON body into v and validates it. On failure it writes the
// 400 response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		err = s.validate.Struct(v)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "invalid request",
			"details": details(err),
		})
		return false
	}
	return true
}

func (s *Server) pathScope(w http.ResponseWriter, r *http.Request) (remote.Scope, bool) {
	scope, err := remote.ParseScope(r.PathValue("scope"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return scope, true
}

// storeError maps a store error to a response.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, remote.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, remote.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	default:
		s.logger.ErrorContext(r.Context(), op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.pathScope(w, r)
	if !ok {
		return
	}
	rec, err := s.store.FetchRecord(r.Context(), scope, r.PathValue("name"))
	if err != nil {
		s.storeError(w, r, "fetch record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) putRecord(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.pathScope(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")
	if err := s.validate.Var(name, "required,max=200"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid record name")
		return
	}

	var req recordRequest
	if !s.decode(w, r, &req) {
		return
	}

	rec := &remote.Record{
		Name:          name,
		Payload:       req.Payload,
		UpdatedAt:     req.UpdatedAt,
		HouseholdID:   req.HouseholdID,
		HouseholdName: req.HouseholdName,
	}
	if err := s.store.SaveRecord(r.Context(), scope, rec); err != nil {
		s.storeError(w, r, "save record", err)
		return
	}
	s.metrics.recordSaved(scope)
	s.broadcastChange(r, name)
	w.WriteHeader(http.StatusNoContent)
}

// broadcastChange signals owners through the private scope and, when the
// record is shared, participants through the shared scope.
func (s *Server) broadcastChange(r *http.Request, name string) {
	now := s.now().UTC()
	s.hub.Broadcast(notify.RecordChanged(remote.ScopePrivate, name, now))

	if _, err := s.store.FetchShare(r.Context(), name); err == nil {
		s.hub.Broadcast(notify.RecordChanged(remote.ScopeShared, name, now))
	} else if !errors.Is(err, remote.ErrNotFound) {
		s.logger.WarnContext(r.Context(), "lookup share for change signal", "record", name, "error", err)
	}
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.pathScope(w, r)
	if !ok {
		return
	}
	sub, err := s.store.FetchSubscription(r.Context(), scope, r.PathValue("id"))
	if err != nil {
		s.storeError(w, r, "fetch subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) putSubscription(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.pathScope(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := s.validate.Var(id, "required,max=200"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	sub := &remote.Subscription{ID: id, Scope: scope, CreatedAt: s.now().UTC()}
	if err := s.store.SaveSubscription(r.Context(), sub); err != nil {
		s.storeError(w, r, "save subscription", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) getShare(w http.ResponseWriter, r *http.Request) {
	share, err := s.store.FetchShare(r.Context(), r.PathValue("name"))
	if err != nil {
		s.storeError(w, r, "fetch share", err)
		return
	}
	writeJSON(w, http.StatusOK, share)
}

func (s *Server) postShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if !s.decode(w, r, &req) {
		return
	}

	root := &remote.Record{
		Name:          req.Root.Name,
		Payload:       req.Root.Payload,
		UpdatedAt:     req.Root.UpdatedAt,
		HouseholdID:   req.Root.HouseholdID,
		HouseholdName: req.Root.HouseholdName,
	}
	share, err := s.store.SaveShare(r.Context(), root, &remote.Share{
		Permission: req.Share.Permission,
		Title:      req.Share.Title,
	})
	if err != nil {
		s.storeError(w, r, "save share", err)
		return
	}
	s.metrics.sharesSaved.Inc()
	s.broadcastChange(r, root.Name)
	writeJSON(w, http.StatusOK, share)
}

func (s *Server) getShareMetadata(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	meta, err := s.store.FetchShareMetadata(r.Context(), url)
	if err != nil {
		s.storeError(w, r, "fetch share metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) postShareAccept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if !s.decode(w, r, &req) {
		return
	}
	meta := &remote.ShareMetadata{
		URL:            req.URL,
		RootRecordName: req.RootRecordName,
		Permission:     req.Permission,
		Title:          req.Title,
	}
	if err := s.store.AcceptShare(r.Context(), meta); err != nil {
		s.storeError(w, r, "accept share", err)
		return
	}
	s.metrics.accepted.Inc()
	w.WriteHeader(http.StatusNoContent)
}
