package mid

import (
	"context"
	"net/http"
	"slices"

	"github.com/ardanlabs/blockminer/foundation/web"
)

// Cors sets the response headers needed for Cross-Origin Resource Sharing.
// The api is read only so only GET and OPTIONS are allowed. An empty list
// or a "*" entry allows every origin, otherwise the request origin is echoed
// back when it is in the list.
func Cors(origins ...string) web.Middleware {
	anyOrigin := len(origins) == 0 || slices.Contains(origins, "*")

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			switch origin := r.Header.Get("Origin"); {
			case anyOrigin:
				w.Header().Set("Access-Control-Allow-Origin", "*")

			case slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")

			default:
				return handler(ctx, w, r)
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding")

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
