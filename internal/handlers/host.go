package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hostrate/apiserver/internal/services"
	"github.com/hostrate/apiserver/types"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxAvatarBytes = 2 << 20
	guestGreeting         = "Hello, guest!"
)

// HostService is the set of host use-cases served over HTTP.
type HostService interface {
	Register(ctx context.Context, draft types.HostDraft) (types.Host, error)
	Login(ctx context.Context, email, password string) (types.Session, error)
	GetHost(ctx context.Context, id int, includePrivate bool) (types.Host, error)
	UpdateHost(ctx context.Context, who types.Identity, patch types.HostPatch) (types.Host, error)
	RemoveHost(ctx context.Context, who types.Identity) error
	SubmitRating(ctx context.Context, who types.Identity, hostID int, in types.RatingInput) (types.Rating, error)
	SetAvatar(ctx context.Context, who types.Identity, contentType string, r io.Reader, size int64) error
	OpenAvatar(ctx context.Context, hostID int) (io.ReadCloser, string, error)
}

// HostHandler provides HTTP handlers for host registration, login and profiles.
type HostHandler struct {
	hosts          HostService
	logger         logrus.FieldLogger
	maxAvatarBytes int64
}

// NewHostHandler constructs a HostHandler. A non-positive maxAvatarBytes uses 2 MiB.
func NewHostHandler(hosts HostService, logger logrus.FieldLogger, maxAvatarBytes int64) *HostHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = defaultMaxAvatarBytes
	}
	return &HostHandler{
		hosts:          hosts,
		logger:         logger,
		maxAvatarBytes: maxAvatarBytes,
	}
}

// HostRouter registers the host routes on the given router.
func HostRouter(r chi.Router, handler *HostHandler, verifier TokenVerifier) {
	requireAuth := RequireAuth(verifier)

	r.Post("/hosts/register", handler.Register)
	r.Post("/host/login", handler.Login)

	r.Route("/host/me", func(r chi.Router) {
		r.With(OptionalAuth(verifier)).Get("/", handler.Me)
		r.With(requireAuth).Put("/", handler.UpdateMe)
		r.With(requireAuth).Delete("/", handler.DeleteMe)
		r.With(requireAuth).Put("/avatar", handler.UploadAvatar)
	})

	r.Route("/hosts/{hostID}", func(r chi.Router) {
		r.Get("/", handler.GetHost)
		r.Get("/avatar", handler.GetAvatar)
		r.With(requireAuth).Post("/ratings", handler.SubmitRating)
	})
}

// Register creates a new host.
func (h *HostHandler) Register(w http.ResponseWriter, r *http.Request) {
	var draft types.HostDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	host, err := h.hosts.Register(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, host)
}

// Login verifies credentials and returns a session token.
func (h *HostHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	session, err := h.hosts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Me returns the caller's own host, or a greeting for guests.
func (h *HostHandler) Me(w http.ResponseWriter, r *http.Request) {
	who, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, GuestResponse{Message: guestGreeting})
		return
	}

	host, err := h.hosts.GetHost(r.Context(), who.HostID, true)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, host)
}

// UpdateMe applies a partial update to the caller's own host.
func (h *HostHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	who, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var patch types.HostPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	host, err := h.hosts.UpdateHost(r.Context(), who, patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, host)
}

// DeleteMe deletes the caller's own host.
func (h *HostHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	who, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.hosts.RemoveHost(r.Context(), who); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{ID: who.HostID, Deleted: true})
}

// GetHost returns the public view of a host.
func (h *HostHandler) GetHost(w http.ResponseWriter, r *http.Request) {
	hostID, err := hostIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	host, err := h.hosts.GetHost(r.Context(), hostID, false)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, host)
}

// SubmitRating records a rating by the caller against the host in the path.
func (h *HostHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	who, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	hostID, err := hostIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in types.RatingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	rating, err := h.hosts.SubmitRating(r.Context(), who, hostID, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rating)
}

// UploadAvatar stores the raw request body as the caller's avatar image.
func (h *HostHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	who, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxAvatarBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "avatar too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if err := h.hosts.SetAvatar(r.Context(), who, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAvatar streams the avatar image of the host in the path.
func (h *HostHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	hostID, err := hostIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc, contentType, err := h.hosts.OpenAvatar(r.Context(), hostID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WithError(err).WithField("host_id", hostID).Warn("failed to stream avatar")
	}
}

// writeServiceError maps service errors onto status codes. Unclassified
// errors are logged and reported as 500 without detail.
func (h *HostHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrDuplicateCredential):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAuthenticationFailed):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrAvatarsDisabled):
		writeError(w, http.StatusServiceUnavailable, "avatars are disabled")
	default:
		h.logger.WithError(err).
			WithField("request_id", middleware.GetReqID(r.Context())).
			WithField("path", r.URL.Path).
			Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// GuestResponse is served on /host/me to callers without a token.
type GuestResponse struct {
	Message string `json:"message"`
}

type DeleteResponse struct {
	ID      int  `json:"id"`
	Deleted bool `json:"deleted"`
}
