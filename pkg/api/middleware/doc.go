// Package middleware provides the HTTP middleware of the trafficgraph API.
//
// Every middleware has the shape func(http.Handler) http.Handler and the
// server chains them outermost first:
//
//	handler := middleware.PanicRecovery(logger)(
//		middleware.RequestID()(
//			middleware.Logging(logger)(
//				middleware.Metrics(registry)(mux))))
//
// Metrics sits directly around the mux so it observes the matched route
// pattern after dispatch.
package middleware
