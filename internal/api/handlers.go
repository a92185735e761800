package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snapvault/internal/apperr"
	"github.com/snapvault/internal/remote"
	"github.com/snapvault/internal/store"
	"github.com/snapvault/internal/version"
)

// getPathParam extracts and URL-decodes a path parameter from the request
func getPathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw // return original if decode fails
	}
	return decoded
}

// APIError represents an error response
type APIError struct {
	Error           string `json:"error"`
	Message         string `json:"message,omitempty"`
	Reason          string `json:"reason,omitempty"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// respondError writes an error response, mapping error categories to status
// codes. Conflicts carry the structured provider-active payload so clients
// can offer the restore-as-new fallback.
func respondError(w http.ResponseWriter, err error) {
	cat := apperr.CategoryOf(err)
	status := categoryStatus(cat)

	resp := APIError{Error: http.StatusText(status), Message: err.Error()}
	if cat == apperr.Conflict {
		resp.Reason = remote.ConflictReasonProviderActive
		resp.SuggestedAction = "restore_as_new"
	}

	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		resp.Message = "Internal server error"
	}

	respondJSON(w, status, resp)
}

func categoryStatus(cat apperr.Category) int {
	switch cat {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unsupported:
		return http.StatusUnprocessableEntity
	case apperr.Network:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth returns the health status of the service
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleUpsertDocument creates or replaces a guest-mode live document
func (s *Server) handleUpsertDocument(w http.ResponseWriter, r *http.Request) {
	documentID := getPathParam(r, "documentID")

	var body struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, apperr.New(apperr.Validation, "invalid request body", err))
		return
	}

	doc := &store.Document{ID: documentID, Title: body.Title, Content: body.Content}
	if err := s.store.UpsertDocument(r.Context(), doc); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// handleGetDocument returns a guest-mode live document
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), getPathParam(r, "documentID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// handleListVersions opens the version panel and returns metadata
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	documentID := getPathParam(r, "documentID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	versions, err := s.orch.OpenPanel(r.Context(), documentID, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	if versions == nil {
		versions = []version.Version{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
		"total":    len(versions),
	})
}

// handleCreateVersion captures a manual snapshot. Content defaults to the
// live document when the body omits it.
func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	documentID := getPathParam(r, "documentID")

	var body struct {
		Content       string `json:"content"`
		Title         string `json:"title"`
		ChangeSummary string `json:"change_summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		respondError(w, apperr.New(apperr.Validation, "invalid request body", err))
		return
	}

	if strings.TrimSpace(body.Content) == "" {
		doc, err := s.store.GetDocument(r.Context(), documentID)
		if err != nil {
			respondError(w, err)
			return
		}
		body.Content = doc.Content
		if body.Title == "" {
			body.Title = doc.Title
		}
	}

	auth := s.repo.Auth()
	v, err := s.repo.CreateVersion(r.Context(), version.CreateRequest{
		DocumentID:    documentID,
		Content:       body.Content,
		Title:         body.Title,
		ChangeSummary: body.ChangeSummary,
		CreatedByID:   auth.UserID,
		Type:          version.TypeManual,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, v)
}

// handleGetVersion returns a specific version with full content
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	documentID := getPathParam(r, "documentID")
	versionNumber, err := strconv.Atoi(chi.URLParam(r, "versionNumber"))
	if err != nil {
		respondError(w, apperr.New(apperr.Validation, "invalid version number", err))
		return
	}

	v, err := s.repo.GetVersionContent(r.Context(), documentID, versionNumber)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, v)
}

// handlePreview composes the rendered, side-by-side, and diff views for a
// version against the live document
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	documentID := getPathParam(r, "documentID")
	versionNumber, err := strconv.Atoi(chi.URLParam(r, "versionNumber"))
	if err != nil {
		respondError(w, apperr.New(apperr.Validation, "invalid version number", err))
		return
	}

	preview, err := s.orch.Preview(r.Context(), documentID, versionNumber)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preview)
}

// handleRestore records a restore intent. Restore-as-new proceeds
// immediately; overwrite always requires a second confirmation call.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	documentID := getPathParam(r, "documentID")
	versionID := getPathParam(r, "versionID")

	var body struct {
		Action   string `json:"action"`
		NewTitle string `json:"new_title"`
		Force    bool   `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, apperr.New(apperr.Validation, "invalid request body", err))
		return
	}

	action := version.RestoreAction(body.Action)
	opts := version.RestoreOptions{NewTitle: body.NewTitle, Force: body.Force}

	if err := s.orch.RequestRestore(documentID, versionID, action, opts); err != nil {
		respondError(w, err)
		return
	}

	if action == version.RestoreOverwrite {
		// One request must never overwrite; the client has to confirm.
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":  "confirmation_required",
			"message": "Overwriting replaces the current document. Confirm to proceed.",
		})
		return
	}

	result, err := s.orch.Confirm(r.Context(), documentID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleConfirmRestore executes a pending restore
func (s *Server) handleConfirmRestore(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.Confirm(r.Context(), getPathParam(r, "documentID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleCancelRestore abandons a pending confirmation
func (s *Server) handleCancelRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Cancel(getPathParam(r, "documentID")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleDismissRestore acknowledges a conflict or error state
func (s *Server) handleDismissRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Dismiss(getPathParam(r, "documentID")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

// handleClosePanel ends a version panel session
func (s *Server) handleClosePanel(w http.ResponseWriter, r *http.Request) {
	s.orch.ClosePanel(getPathParam(r, "documentID"))
	respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
