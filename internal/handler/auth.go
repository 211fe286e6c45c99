package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// userIDKey is the context key for the authenticated user's ID.
type userIDKey struct{}

// UserIDFromContext extracts the authenticated user ID from the context.
// It returns an empty string if the request was not authenticated.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}

// authenticated wraps an endpoint with bearer-token authentication. The
// presented token is hashed with HMAC-SHA256 (peppered), looked up, and
// compared in constant time; the resolved user ID is stored in the request
// context.
func (h *Handler) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondUnauthorized(w)
			return
		}

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(token))
		hash := mac.Sum(nil)

		info, err := h.tokens.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			respondUnauthorized(w)
			return
		}

		storedBytes, err := hex.DecodeString(info.TokenHash)
		if err != nil || subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
			respondUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, info.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

func respondUnauthorized(w http.ResponseWriter) {
	respondError(w, http.StatusUnauthorized, "unauthorized", nil)
}
