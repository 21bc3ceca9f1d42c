// Package httputil holds small net/http helpers shared by the outbound clients.
package httputil

import "net/http"

// HeaderTransport adds fixed headers to every request before handing it to
// the wrapped RoundTripper.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers http.Header
}

func (t HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	// clone so the caller's request keeps its headers
	cl := req.Clone(req.Context())
	for k, vs := range t.Headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return base.RoundTrip(cl)
}

// WithHeaders returns a copy of hc whose transport injects headers. hc is
// left untouched; a nil hc means a zero http.Client.
func WithHeaders(hc *http.Client, headers http.Header) *http.Client {
	var out http.Client
	if hc != nil {
		out = *hc
	}
	out.Transport = HeaderTransport{Base: out.Transport, Headers: headers.Clone()}
	return &out
}
