package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	jwkserrors "github.com/tendant/jwks-resolver/internal/errors"
	"github.com/tendant/jwks-resolver/internal/jwks"
)

// KeyProvider resolves signing keys.
type KeyProvider interface {
	GetSigningKeys(ctx context.Context) (jwks.SigningKeys, error)
	GetSigningKey(ctx context.Context, kid string) (jwks.SigningKey, error)
}

// KeysHandler handles the key lookup endpoints.
type KeysHandler struct {
	provider KeyProvider
	logger   *slog.Logger
}

// NewKeysHandler creates a new KeysHandler.
func NewKeysHandler(provider KeyProvider, logger *slog.Logger) *KeysHandler {
	return &KeysHandler{
		provider: provider,
		logger:   logger,
	}
}

type keysResponse struct {
	Keys jwks.SigningKeys `json:"keys"`
}

// List handles GET /keys.
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.provider.GetSigningKeys(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(keysResponse{Keys: keys}); err != nil {
		h.logger.Error("failed to encode keys", "error", err)
	}
}

// Get handles GET /keys/{kid}.
func (h *KeysHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := h.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(key); err != nil {
		h.logger.Error("failed to encode key", "error", err, "kid", key.Kid)
	}
}

// PEM handles GET /keys/{kid}/pem.
func (h *KeysHandler) PEM(w http.ResponseWriter, r *http.Request) {
	key, ok := h.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Write([]byte(key.PEM()))
}

func (h *KeysHandler) lookup(w http.ResponseWriter, r *http.Request) (jwks.SigningKey, bool) {
	kid, err := kidParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return jwks.SigningKey{}, false
	}

	key, err := h.provider.GetSigningKey(r.Context(), kid)
	if err != nil {
		h.writeError(w, r, err)
		return jwks.SigningKey{}, false
	}
	return key, true
}

// kidParam returns the {kid} segment as published. chi matches on
// r.URL.RawPath when it is set, so only then is the segment still escaped.
func kidParam(r *http.Request) (string, error) {
	kid := chi.URLParam(r, "kid")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(kid)
		if err != nil {
			return "", jwkserrors.InvalidInput("invalid key ID")
		}
		kid = unescaped
	}
	if kid == "" {
		return "", jwkserrors.InvalidInput("invalid key ID")
	}
	return kid, nil
}

func (h *KeysHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *jwkserrors.Error
	if !errors.As(err, &e) {
		e = jwkserrors.Internal("failed to resolve signing keys", err)
		err = e
	}
	code := e.Code
	status := statusForCode(code)

	if status >= http.StatusInternalServerError {
		h.logger.Error("failed to resolve signing keys", "error", err, "path", r.URL.Path)
	}

	writeJSONError(w, status, code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case jwkserrors.CodeKeyNotFound:
		return http.StatusNotFound
	case jwkserrors.CodeInvalidInput:
		return http.StatusBadRequest
	case jwkserrors.CodeEmptyKeySet, jwkserrors.CodeNoSigningKeys, jwkserrors.CodeFetch, jwkserrors.CodeInvalidKey:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
