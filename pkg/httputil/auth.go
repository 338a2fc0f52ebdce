package httputil

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/peoplebase/peoplebase-backend/pkg/actor"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/jwt"
)

// Headers set by the API gateway after it has verified the caller's token
const (
	HeaderAccountID       = "X-Account-ID"
	HeaderAccountUsername = "X-Account-Username"
	HeaderAccountActive   = "X-Account-Active"
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// ActorMiddleware resolves the calling account and stores it in the context.
//
// A Bearer token is verified with tokens. Without one, and only when
// trustGateway is set, the gateway's X-Account-* headers are accepted.
// Requests with neither are rejected with 401; /health is always allowed.
func ActorMiddleware(tokens TokenValidator, trustGateway bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			a, err := resolveActor(r, tokens, trustGateway)
			if err != nil {
				ErrorLocalized(w, r, err)
				return
			}

			ctx := actor.WithActor(r.Context(), a)
			if rw, ok := w.(*responseWriter); ok {
				rw.ctx = ctx
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveActor(r *http.Request, tokens TokenValidator, trustGateway bool) (*actor.Actor, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, errors.Unauthorized("invalid authorization header format")
		}
		claims, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			return nil, err
		}
		return claims.Actor(), nil
	}

	if !trustGateway || r.Header.Get(HeaderAccountID) == "" {
		return nil, errors.Unauthorized("missing authorization header")
	}

	id, err := strconv.ParseInt(r.Header.Get(HeaderAccountID), 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.Unauthorized("invalid account header")
	}
	active, _ := strconv.ParseBool(r.Header.Get(HeaderAccountActive))

	return &actor.Actor{
		ID:       id,
		Username: r.Header.Get(HeaderAccountUsername),
		IsActive: active,
	}, nil
}
