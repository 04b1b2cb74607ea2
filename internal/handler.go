package internal

// Handler groups related routes. Routes is called once while New builds
// the router.
type Handler interface {
	Routes(r Router)
}

// HandlerFunc serves a request. A returned error goes to the ErrorHandler
// unless the response has already been written.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc. It may short-circuit by returning an
// error without calling next.
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler renders an error returned by a handler or middleware.
type ErrorHandler func(c Context, err error) error
