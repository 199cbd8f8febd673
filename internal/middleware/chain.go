package middleware

import "net/http"

// Chain applies middleware in the order given: the first one sees the
// request first.
//
//	handler := Chain(mux,
//	    Recovery,        // outermost
//	    RequestLogging,
//	    Metrics(m),      // innermost, reads the matched route
//	)
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
