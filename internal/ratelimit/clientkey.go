package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is the key used when a request carries no forwarding header.
const UnknownClient = "unknown"

// ClientKey derives the rate limit key for r from its proxy headers: the first
// address in X-Forwarded-For, else X-Real-IP, else UnknownClient.
//
// Both headers are client controlled. Behind a proxy that does not overwrite
// them, a caller can rotate keys at will.
//
// The key identifies a client, not a budget. Callers prefix it with the form
// name ("contact:203.0.113.10"), so each form keeps its own allowance and
// exhausting /contact leaves /subscribe untouched. A single budget shared by
// every form would need the bare key.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return UnknownClient
}
