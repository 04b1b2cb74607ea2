// Package middlewares provides the HTTP middleware used by the mailroom API.
//
// # Request ID
//
// RequestID reuses an upstream X-Request-ID (or X-Correlation-ID) header or
// generates a UUIDv7, stores it in the context and echoes it in the response.
// Pair it with RequestIDExtractor so every log record carries request_id:
//
//	app := mailroom.New(
//	    mailroom.WithLogger("api", middlewares.RequestIDExtractor(), middlewares.CallerIDExtractor()),
//	    mailroom.WithMiddleware(middlewares.RequestID(), middlewares.Recover()),
//	)
//
// # Access log
//
// AccessLog writes one record per request with method, path, status, size
// and duration. Health probe paths can be skipped.
//
// # Recover
//
// Recover turns panics into *PanicError values so the ErrorHandler renders
// a 500 instead of dropping the connection.
//
// # Timeout
//
// Timeout bounds a handler's run time and returns *TimeoutError when the
// deadline passes.
//
// # Identity
//
// Identity parses a bearer JWT and stores its subject as the caller id.
// It is non-blocking by default; WithIdentityRequired makes it reject
// anonymous requests with 401.
//
//	r.Use(middlewares.Identity(tokens))
//	callerID := middlewares.GetCallerID(c)
package middlewares
