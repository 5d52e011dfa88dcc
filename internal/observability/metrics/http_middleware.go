package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RouteMatcher reports the pattern a request routes to. *http.ServeMux
// satisfies it.
type RouteMatcher interface {
	Handler(r *http.Request) (h http.Handler, pattern string)
}

// HTTPMetricsMiddleware instruments requests with Prometheus metrics.
// Paths are labelled with the route pattern routes resolves for the request,
// which bounds cardinality and does not depend on how many layers copy the
// request before it reaches the mux.
func HTTPMetricsMiddleware(routes RouteMatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := routeLabel(routes, r)
			ww := &statusWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(ww, r)
			ObserveHTTPRequest(r.Method, path, strconv.Itoa(ww.status), time.Since(start))
		})
	}
}

func routeLabel(routes RouteMatcher, r *http.Request) string {
	pattern := r.Pattern
	if pattern == "" && routes != nil {
		_, pattern = routes.Handler(r)
	}
	if pattern == "" {
		return "unmatched"
	}
	// Registered patterns carry the method; it already has its own label.
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
