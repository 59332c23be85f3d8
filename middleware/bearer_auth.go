package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/timgluz/luftspiegel/response"
	"github.com/timgluz/luftspiegel/secret"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnsupportedAuth = errors.New("unsupported authorization type")
	ErrServiceNotReady = errors.New("service is not ready")
)

const (
	bearerPrefix          = "bearer "
	authenticateHeader    = "WWW-Authenticate"
	authenticateChallenge = "Bearer"
)

func BearerAuth(h httprouter.Handle, secretStore secret.Store) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < len(bearerPrefix) {
			w.Header().Set(authenticateHeader, authenticateChallenge)
			response.RenderError(w, ErrUnauthorized, http.StatusUnauthorized)
			return
		}

		if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			w.Header().Set(authenticateHeader, authenticateChallenge)
			response.RenderError(w, ErrUnsupportedAuth, http.StatusBadRequest)
			return
		}

		token := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if token == "" {
			w.Header().Set(authenticateHeader, authenticateChallenge)
			response.RenderError(w, ErrUnauthorized, http.StatusUnauthorized)
			return
		}

		if secretStore == nil {
			response.RenderError(w, ErrServiceNotReady, http.StatusInternalServerError)
			return
		}

		if _, err := secretStore.Get(token); err != nil {
			w.Header().Set(authenticateHeader, authenticateChallenge)
			if errors.Is(err, secret.ErrSecretNotFound) {
				response.RenderError(w, ErrUnauthorized, http.StatusUnauthorized)
				return
			}

			response.RenderError(w, fmt.Errorf("invalid token: %w", err), http.StatusInternalServerError)
			return
		}

		h(w, r, ps)
	}
}
