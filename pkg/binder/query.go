package binder

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Query binds URL query parameters into fields tagged `query:"name"`.
// Not applicable when the URL has no query string.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if r.URL.RawQuery == "" {
			return ErrBinderNotApplicable
		}
		return bindToStruct(v, "query", r.URL.Query(), ErrInvalidQuery)
	}
}

// Path binds chi URL parameters into fields tagged `path:"name"`.
func Path() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rctx := chi.RouteContext(r.Context())
		if rctx == nil || len(rctx.URLParams.Keys) == 0 {
			return ErrBinderNotApplicable
		}
		values := make(map[string][]string, len(rctx.URLParams.Keys))
		for i, key := range rctx.URLParams.Keys {
			values[key] = []string{rctx.URLParams.Values[i]}
		}
		return bindToStruct(v, "path", values, ErrInvalidPath)
	}
}
