package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fcanovai/rescache/internal/logger"
	"github.com/fcanovai/rescache/pkg/server/store"
)

// resourceHandler implements the resource API endpoints.
type resourceHandler struct {
	store store.Store
}

func newResourceHandler(st store.Store) *resourceHandler {
	return &resourceHandler{store: st}
}

// resourceEnvelope is the wire format for resource payloads. Data is
// base64-encoded so the payload survives JSON transport intact.
type resourceEnvelope struct {
	ResourceID string     `json:"resource_id"`
	Data       string     `json:"data"`
	Encoding   string     `json:"encoding"`
	Metadata   store.Info `json:"metadata"`
}

// uploadRequest is the body accepted by POST /api/resources.
type uploadRequest struct {
	ResourceID string `json:"resource_id"`
	Data       string `json:"data"`
	Type       string `json:"type"`
	Priority   uint8  `json:"priority"`
}

type uploadResponse struct {
	Status   string     `json:"status"`
	Metadata store.Info `json:"metadata"`
}

type versionResponse struct {
	ResourceID string `json:"resource_id"`
	Version    uint32 `json:"version"`
}

type listResponse struct {
	Resources []store.Info `json:"resources"`
	Count     int          `json:"count"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health handles GET /health.
func (h *resourceHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Get handles GET /api/resources/{id}. The payload is returned base64-encoded
// inside a JSON envelope along with its metadata.
func (h *resourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, info, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found: "+id)
			return
		}
		logger.Error("resource fetch failed", logger.KeyResourceID, id, logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resourceEnvelope{
		ResourceID: id,
		Data:       base64.StdEncoding.EncodeToString(data),
		Encoding:   "base64",
		Metadata:   info,
	})
}

// Upload handles POST /api/resources. Replacing an existing resource bumps
// its version.
func (h *resourceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.ResourceID == "" {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}
	if req.Data == "" {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "data is not valid base64")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "payload must not be empty")
		return
	}

	resType := req.Type
	if resType == "" {
		resType = "generic"
	}

	info, err := h.store.Put(r.Context(), req.ResourceID, data, resType, req.Priority)
	if err != nil {
		logger.Error("resource upload failed", logger.KeyResourceID, req.ResourceID, logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("resource stored",
		logger.KeyResourceID, req.ResourceID,
		logger.KeyType, resType,
		logger.KeyVersion, info.Version,
		logger.KeySize, info.Size)

	writeJSON(w, http.StatusCreated, uploadResponse{Status: "stored", Metadata: info})
}

// Delete handles DELETE /api/resources/{id}.
func (h *resourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	resID := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), resID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found: "+resID)
			return
		}
		logger.Error("resource delete failed", logger.KeyResourceID, resID, logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("resource deleted", logger.KeyResourceID, resID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "resource_id": resID})
}

// Version handles GET /api/resources/{id}/version. Clients poll this before
// deciding whether their cached copy is still current.
func (h *resourceHandler) Version(w http.ResponseWriter, r *http.Request) {
	resID := chi.URLParam(r, "id")

	version, err := h.store.Version(r.Context(), resID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found: "+resID)
			return
		}
		logger.Error("version lookup failed", logger.KeyResourceID, resID, logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, versionResponse{ResourceID: resID, Version: version})
}

// Info handles GET /api/resources/{id}/info. Metadata only, no payload and
// no access-count bump.
func (h *resourceHandler) Info(w http.ResponseWriter, r *http.Request) {
	resID := chi.URLParam(r, "id")

	info, err := h.store.Info(r.Context(), resID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found: "+resID)
			return
		}
		logger.Error("info lookup failed", logger.KeyResourceID, resID, logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// List handles GET /api/resources. An optional ?type= query filters by
// resource type.
func (h *resourceHandler) List(w http.ResponseWriter, r *http.Request) {
	typeFilter := r.URL.Query().Get("type")

	infos, err := h.store.List(r.Context(), typeFilter)
	if err != nil {
		logger.Error("resource list failed", logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if infos == nil {
		infos = []store.Info{}
	}
	writeJSON(w, http.StatusOK, listResponse{Resources: infos, Count: len(infos)})
}

// Stats handles GET /api/stats.
func (h *resourceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		logger.Error("stats failed", logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.KeyError, err)
	}
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

// decodeJSONBody decodes the request body into v, enforcing a size cap and
// rejecting unknown fields. On failure it writes a BadRequest response and
// returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	const maxBodySize = 64 << 20 // resources can be large

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				"request body exceeds "+strconv.FormatInt(maxErr.Limit, 10)+" bytes")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
