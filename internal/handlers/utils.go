package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hostrate/apiserver/types"
)

const maxJSONBodyBytes = 1 << 20

type contextKey string

const contextSubjectKey contextKey = "sub"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func withIdentity(ctx context.Context, who types.Identity) context.Context {
	return context.WithValue(ctx, contextSubjectKey, who)
}

func identityFromContext(ctx context.Context) (types.Identity, bool) {
	who, ok := ctx.Value(contextSubjectKey).(types.Identity)
	if !ok || who.HostID < 1 {
		return types.Identity{}, false
	}
	return who, true
}

func hostIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "hostID")))
	if err != nil || id < 1 {
		return 0, errors.New("invalid host id")
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
