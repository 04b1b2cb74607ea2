package internal

import "strings"

// TokenSource reads a credential from one place in the request.
type TokenSource func(c Context) (string, bool)

// Extractor tries its sources in order; the first non-empty value wins.
type Extractor []TokenSource

// NewExtractor builds an Extractor from sources.
func NewExtractor(sources ...TokenSource) Extractor {
	return Extractor(sources)
}

// Extract returns the first value found, or false when every source misses.
func (e Extractor) Extract(c Context) (string, bool) {
	for _, src := range e {
		if v, ok := src(c); ok {
			return v, true
		}
	}
	return "", false
}

// FromHeader reads the named request header.
func FromHeader(name string) TokenSource {
	return nonEmpty(func(c Context) string { return c.Header(name) })
}

// FromQuery reads the named query parameter.
func FromQuery(name string) TokenSource {
	return nonEmpty(func(c Context) string { return c.Query(name) })
}

// FromParam reads the named chi URL parameter.
func FromParam(name string) TokenSource {
	return nonEmpty(func(c Context) string { return c.Param(name) })
}

// FromBearerToken reads "Authorization: Bearer <token>". The scheme is
// matched case-insensitively.
func FromBearerToken() TokenSource {
	return nonEmpty(func(c Context) string {
		scheme, token, ok := strings.Cut(c.Header("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return ""
		}
		return token
	})
}

func nonEmpty(get func(Context) string) TokenSource {
	return func(c Context) (string, bool) {
		v := strings.TrimSpace(get(c))
		return v, v != ""
	}
}
