package internal

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router declares routes. Per-route middleware runs inside any added with
// Use, in the order given.
type Router interface {
	GET(pattern string, h HandlerFunc, mw ...Middleware)
	POST(pattern string, h HandlerFunc, mw ...Middleware)
	PUT(pattern string, h HandlerFunc, mw ...Middleware)
	DELETE(pattern string, h HandlerFunc, mw ...Middleware)

	// Group shares middleware between routes without a prefix.
	Group(fn func(r Router))
	// Route mounts a sub-router under pattern.
	Route(pattern string, fn func(r Router))
	Use(mw ...Middleware)
	Mount(pattern string, h http.Handler)
}

type routes struct {
	mux chi.Router
	app *App
}

func (r *routes) GET(pattern string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodGet, pattern, h, mw)
}

func (r *routes) POST(pattern string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodPost, pattern, h, mw)
}

func (r *routes) PUT(pattern string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodPut, pattern, h, mw)
}

func (r *routes) DELETE(pattern string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodDelete, pattern, h, mw)
}

func (r *routes) handle(method, pattern string, h HandlerFunc, mw []Middleware) {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	r.mux.Method(method, pattern, r.app.wrapHandler(h))
}

func (r *routes) Group(fn func(Router)) {
	r.mux.Group(func(sub chi.Router) { fn(&routes{mux: sub, app: r.app}) })
}

func (r *routes) Route(pattern string, fn func(Router)) {
	r.mux.Route(pattern, func(sub chi.Router) { fn(&routes{mux: sub, app: r.app}) })
}

func (r *routes) Use(mw ...Middleware) {
	for _, m := range mw {
		r.mux.Use(r.app.chiMiddleware(m))
	}
}

func (r *routes) Mount(pattern string, h http.Handler) {
	r.mux.Mount(pattern, h)
}

// chiMiddleware runs mw as net/http middleware. The rest of the chain is
// invoked with mw's view of the request so values it sets reach handlers.
func (a *App) chiMiddleware(mw Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			c := newContext(w, req, a)
			err := mw(func(c Context) error {
				next.ServeHTTP(c.Response(), c.Request())
				return nil
			})(c)
			if err != nil {
				a.handleError(c, err)
			}
		})
	}
}
