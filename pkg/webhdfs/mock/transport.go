package mock

import (
	"net/http"
	"net/http/httptest"
)

// Transport returns a RoundTripper that serves every request from the cluster
// in-process, whatever host the URL names. Redirects to the data node resolve
// back into the same cluster.
func (c *Cluster) Transport() http.RoundTripper {
	return roundTripper{cluster: c}
}

type roundTripper struct {
	cluster *Cluster
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	in := req.Clone(req.Context())
	if in.Body == nil {
		in.Body = http.NoBody
	}
	if in.Host == "" {
		in.Host = req.URL.Host
	}
	in.RequestURI = req.URL.RequestURI()

	rec := httptest.NewRecorder()
	rt.cluster.ServeHTTP(rec, in)
	if req.Body != nil {
		_ = req.Body.Close()
	}

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
