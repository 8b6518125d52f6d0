/*
middleware.go - Caller identity and channel authentication

PURPOSE:
  Two concerns sit in front of every API route:

  1. Channel auth: when the server is configured with a shared secret, the
     X-Channel-Secret header must match it (constant-time compare). This
     authenticates the CHANNEL (the trusted frontend or gateway), not the
     end user.
  2. Caller identity: the verified end-user identity arrives in the
     X-Caller header, set by the upstream channel after it has verified the
     user's session. The engine trusts it as-is; per-record authorization
     happens in the domain layer via ownership checks.

  An anonymous request (empty X-Caller) is allowed through: public
  marketplace listings need no identity, and owner-gated operations reject
  the empty identity on their own.

SEE ALSO:
  - funding/guard.go: The ownership check consuming the identity
*/
package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/soulboard/funding-engine/funding"
)

type contextKey string

const callerKey contextKey = "caller"

// CallerHeader carries the verified end-user identity.
const CallerHeader = "X-Caller"

// ChannelSecretHeader carries the shared channel credential.
const ChannelSecretHeader = "X-Channel-Secret"

// ChannelAuth rejects requests whose channel secret does not match. An
// empty configured secret disables the check (dev mode).
func ChannelAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get(ChannelSecretHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					writeError(w, http.StatusUnauthorized, "invalid channel credentials", "unauthorized_channel")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerIdentity copies the X-Caller header into the request context.
func CallerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := funding.Identity(r.Header.Get(CallerHeader))
		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerFrom returns the request's verified identity; empty if anonymous.
func callerFrom(r *http.Request) funding.Identity {
	caller, _ := r.Context().Value(callerKey).(funding.Identity)
	return caller
}
