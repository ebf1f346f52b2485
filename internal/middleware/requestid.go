// Package middleware provides HTTP middleware for bbwebhook.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/bbwebhook/internal/logger"
)

const (
	headerRequestID = "X-Request-ID"
	// Bitbucket sets this on every webhook delivery.
	headerBitbucketRequestUUID = "X-Request-UUID"

	maxRequestIDLen = 128
)

// RequestID stores a request ID in the context and echoes it on the
// response. It reuses X-Request-ID, then Bitbucket's X-Request-UUID, and
// otherwise generates a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := pickRequestID(r.Header.Get(headerRequestID), r.Header.Get(headerBitbucketRequestUUID))

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pickRequestID(candidates ...string) string {
	for _, c := range candidates {
		if validRequestID(c) {
			return c
		}
	}
	return uuid.NewString()
}

// validRequestID accepts short printable ASCII values only, keeping
// client-supplied IDs safe to log.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
