package scraper

import (
	"context"
	"crypto/x509"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	tls "github.com/refraction-networking/utls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cascade/engine"
)

func TestHTTPFetcherHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = io.WriteString(w, "<html><title>ok</title></html>")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0)
	defer f.Close()

	resp, err := f.Do(context.Background(), &engine.TransportRequest{
		URL:     srv.URL,
		Headers: map[string]string{"User-Agent": "custom-agent", "X-Trace": "1"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "custom-agent", got.Get("User-Agent"))
	assert.Equal(t, "1", got.Get("X-Trace"))
	assert.Equal(t, "en-US,en;q=0.9", got.Get("Accept-Language"))
}

func TestHTTPFetcherReturnsErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resp, err := NewHTTPFetcher(0).Do(context.Background(), &engine.TransportRequest{URL: srv.URL})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHTTPFetcherHTTPProxy(t *testing.T) {
	var proxiedHost string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedHost = r.URL.Host
		_, _ = io.WriteString(w, "via proxy")
	}))
	defer proxy.Close()

	f := NewHTTPFetcher(0)
	resp, err := f.Do(context.Background(), &engine.TransportRequest{
		URL:   "http://origin.example/page",
		Proxy: proxy.URL,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "via proxy", string(body))
	assert.Equal(t, "origin.example", proxiedHost)

	// Transports are reused per proxy.
	t1, err := f.transport(proxy.URL)
	require.NoError(t, err)
	t2, err := f.transport(proxy.URL)
	require.NoError(t, err)
	assert.Same(t, t1, t2)
}

func TestHTTPFetcherInvalidProxy(t *testing.T) {
	f := NewHTTPFetcher(0)
	for _, p := range []string{"ftp://proxy:21", "::bad"} {
		_, err := f.Do(context.Background(), &engine.TransportRequest{URL: "http://example.com", Proxy: p})
		assert.Error(t, err, p)
	}
}

func TestHTTPFetcherSOCKSTransport(t *testing.T) {
	tr, err := newTransport("socks5://127.0.0.1:1080", nil)
	require.NoError(t, err)
	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)
	assert.NotNil(t, tr.DialTLSContext)
}

func TestHTTPFetcherRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(3).Do(context.Background(), &engine.TransportRequest{URL: srv.URL})
	assert.ErrorContains(t, err, "redirects")
}

func newTLSOrigin(t *testing.T) (*httptest.Server, *x509.CertPool) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// One connection per request, so every request runs a handshake.
		w.Header().Set("Connection", "close")
		_, _ = io.WriteString(w, "<html><title>secure</title></html>")
	}))
	t.Cleanup(srv.Close)

	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())
	return srv, roots
}

func TestHTTPFetcherTLSSequentialHandshakes(t *testing.T) {
	srv, roots := newTLSOrigin(t)
	f := NewHTTPFetcher(0)
	f.rootCAs = roots
	defer f.Close()

	for i := 0; i < 3; i++ {
		resp, err := f.Do(context.Background(), &engine.TransportRequest{URL: srv.URL})
		require.NoError(t, err, "request %d", i)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "secure")
	}
}

func TestHTTPFetcherTLSConcurrentHandshakes(t *testing.T) {
	srv, roots := newTLSOrigin(t)
	f := NewHTTPFetcher(0)
	f.rootCAs = roots
	defer f.Close()

	const n = 16
	errs := make([]error, n)
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.Do(context.Background(), &engine.TransportRequest{URL: srv.URL})
			if err != nil {
				errs[i] = err
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.NoError(t, errs[i], "request %d", i)
		assert.Equal(t, http.StatusOK, codes[i], "request %d", i)
	}
}

func TestHTTPFetcherTLSUntrustedCertificate(t *testing.T) {
	srv, _ := newTLSOrigin(t)
	f := NewHTTPFetcher(0)

	for i := 0; i < 2; i++ {
		_, err := f.Do(context.Background(), &engine.TransportRequest{URL: srv.URL})
		require.Error(t, err)
		assert.ErrorContains(t, err, "certificate", "request %d must reach verification", i)
	}
}

func TestChromeH1SpecIsFreshPerCall(t *testing.T) {
	alpnOf := func(spec *tls.ClientHelloSpec) *tls.ALPNExtension {
		for _, ext := range spec.Extensions {
			if alpn, ok := ext.(*tls.ALPNExtension); ok {
				return alpn
			}
		}
		return nil
	}

	a, err := chromeH1Spec()
	require.NoError(t, err)
	b, err := chromeH1Spec()
	require.NoError(t, err)

	alpnA, alpnB := alpnOf(a), alpnOf(b)
	require.NotNil(t, alpnA)
	require.NotNil(t, alpnB)
	assert.NotSame(t, alpnA, alpnB)
	assert.Equal(t, []string{"http/1.1"}, alpnA.AlpnProtocols)
}
