package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// unmatchedRoute labels requests chi could not route, so probing random
// paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// HTTPMiddleware records preview server requests by chi route pattern.
// It must run inside the router so the pattern is known once the handler
// returns.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := Global()
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			// Handler wrote nothing; net/http answers 200
			status = http.StatusOK
		}
		route := routeLabel(r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		if status >= 400 {
			m.HTTPErrorsTotal.WithLabelValues(errorKind(status)).Inc()
		}
	})
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

// errorKind maps the statuses the preview server produces to error labels
func errorKind(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusForbidden:
		return "ip_denied"
	case http.StatusNotFound:
		return "draft_not_found"
	case http.StatusConflict:
		return "submit_in_progress"
	case http.StatusUnprocessableEntity:
		return "draft_incomplete"
	case http.StatusBadGateway:
		return "backend_failed"
	}
	if status >= 500 {
		return "server_error"
	}
	return "client_error"
}
