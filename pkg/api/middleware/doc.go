// Package middleware provides the HTTP middleware chain of the fabric
// analysis server.
//
//   - recovery.go: panic recovery
//   - logging.go: structured request logging
//   - cors.go: Cross-Origin Resource Sharing
//   - body_limit.go: request body size limit
//   - request_id.go: request ID generation and propagation
//   - metrics.go: HTTP metrics collection
//
// All middleware has the shape func(http.Handler) http.Handler:
//
//	handler := middleware.PanicRecovery(logger)(mux)
//	handler = middleware.Logging(logger, middleware.GetRequestID)(handler)
//	handler = middleware.RequestID()(handler)
package middleware
