// Package httpapi exposes the application services over a JSON REST API.
package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	app "github.com/morarasu-alexandru/nft-collection-manager/internal/app"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/metrics"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/httputil"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/middleware"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/logger"
)

// HandlerOptions tunes the API surface.
type HandlerOptions struct {
	// AuditMax bounds the in-memory audit buffer. Zero means the default.
	AuditMax int
	// AuditFile, when set, streams audit entries to a JSONL file.
	AuditFile string
}

// handler bundles the HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns a router exposing the REST API. Authentication is
// applied by the caller; every /api/v1 route expects an identity in the
// request context.
func NewHandler(application *app.Application, opts HandlerOptions) (http.Handler, error) {
	sink, err := newFileAuditSink(opts.AuditFile)
	if err != nil {
		return nil, err
	}

	h := &handler{
		app:   application,
		audit: newAuditLog(opts.AuditMax, sink),
		log:   logger.NewDefault("httpapi"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.auditMiddleware)
	api.Use(mux.MiddlewareFunc(middleware.RequireUserID))
	api.HandleFunc("/assets", h.listAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets", h.createAsset).Methods(http.MethodPost)
	api.HandleFunc("/assets/{id}", h.getAsset).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/transfer", h.transferAsset).Methods(http.MethodPost)
	api.HandleFunc("/audit", h.listAudit).Methods(http.MethodGet)

	return r, nil
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		ownerID = middleware.GetUserID(r.Context())
	}

	assets, err := h.app.Catalog.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assets)
}

func (h *handler) createAsset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		OwnerID     string `json:"owner_id"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}

	caller := middleware.GetUserID(r.Context())
	if payload.OwnerID != "" && payload.OwnerID != caller {
		h.writeError(w, r, errors.Forbidden("cannot create assets for another user"))
		return
	}

	created, err := h.app.Catalog.Create(r.Context(), payload.Name, payload.Description, caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["id"]

	details, err := h.app.Catalog.GetDetails(r.Context(), assetID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

func (h *handler) transferAsset(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["id"]

	var payload struct {
		FromUserID  string `json:"from_user_id"`
		ToUserEmail string `json:"to_user_email"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}

	caller := middleware.GetUserID(r.Context())
	from := payload.FromUserID
	if from == "" {
		from = caller
	}

	message, err := h.app.Transfer.Transfer(r.Context(), assetID, caller, from, payload.ToUserEmail)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, r, errors.Validation("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	httputil.WriteJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("", err)
	}
	if serviceErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).
			WithField("path", r.URL.Path).
			Error("request failed")
	}
	httputil.WriteError(w, serviceErr)
}

// auditMiddleware records every API request with the caller and outcome.
func (h *handler) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			User:       middleware.GetUserID(r.Context()),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
