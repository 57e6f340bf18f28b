package generator

import (
	"net"
	"net/http"
	"time"
)

// defaultGenerateTimeout bounds a single generation round trip. A local
// model on a long Arabic prompt can take the better part of a minute.
const defaultGenerateTimeout = 120 * time.Second

// newHTTPClient returns the pooled client the HTTP generators share. The
// pool is small because a deployment talks to one or two backends.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        8,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
