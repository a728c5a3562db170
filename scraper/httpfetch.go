package scraper

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/cascade/engine"
	"golang.org/x/net/proxy"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// defaultHeaders are sent unless the request overrides them.
var defaultHeaders = map[string]string{
	"User-Agent":      chromeUA,
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Cache-Control":   "no-cache",
}

// chromeH1Spec returns a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. utls extensions keep handshake state, so every connection
// needs its own spec.
func chromeH1Spec() (*tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return nil, err
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			break
		}
	}
	return &spec, nil
}

// HTTPFetcher is the network transport: plain HTTP with a Chrome TLS
// fingerprint, routed through an optional HTTP(S) or SOCKS5 proxy.
// Transports are kept per proxy so connections are reused.
type HTTPFetcher struct {
	maxRedirects int

	// rootCAs overrides the system roots; nil uses the system pool.
	rootCAs *x509.CertPool

	mu         sync.Mutex
	transports map[string]*http.Transport
}

// NewHTTPFetcher creates an HTTPFetcher that follows up to maxRedirects
// redirects (10 when <= 0).
func NewHTTPFetcher(maxRedirects int) *HTTPFetcher {
	if maxRedirects <= 0 {
		maxRedirects = 10
	}
	return &HTTPFetcher{
		maxRedirects: maxRedirects,
		transports:   make(map[string]*http.Transport),
	}
}

// Do sends a GET for req. The caller closes the response body.
func (f *HTTPFetcher) Do(ctx context.Context, req *engine.TransportRequest) (*http.Response, error) {
	transport, err := f.transport(req.Proxy)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	for k, v := range defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= f.maxRedirects {
				return fmt.Errorf("httpfetch: stopped after %d redirects", len(via))
			}
			return nil
		},
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}
	return resp, nil
}

// Close drops idle connections of every transport.
func (f *HTTPFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transports {
		t.CloseIdleConnections()
	}
}

func (f *HTTPFetcher) transport(proxyURL string) (*http.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.transports[proxyURL]; ok {
		return t, nil
	}
	t, err := newTransport(proxyURL, f.rootCAs)
	if err != nil {
		return nil, err
	}
	f.transports[proxyURL] = t
	return t, nil
}

// newTransport builds an http.Transport for one proxy setting.
// HTTP(S) proxies use CONNECT; SOCKS5 proxies replace the dialer.
func newTransport(proxyURL string, roots *x509.CertPool) (*http.Transport, error) {
	base := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	dial := base.DialContext

	t := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   false,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("httpfetch: invalid proxy %q", proxyURL)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			t.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			d, err := proxy.FromURL(u, base)
			if err != nil {
				return nil, fmt.Errorf("httpfetch: socks5 proxy: %w", err)
			}
			cd, ok := d.(proxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("httpfetch: socks5 dialer does not support contexts")
			}
			dial = cd.DialContext
		default:
			return nil, fmt.Errorf("httpfetch: unsupported proxy scheme %q", u.Scheme)
		}
	}

	t.DialContext = dial
	t.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return handshakeChrome(ctx, conn, addr, roots)
	}
	return t, nil
}

// handshakeChrome runs a TLS handshake over conn with a Chrome fingerprint.
func handshakeChrome(ctx context.Context, conn net.Conn, addr string, roots *x509.CertPool) (net.Conn, error) {
	host, _, _ := net.SplitHostPort(addr)
	cfg := &tls.Config{ServerName: host, RootCAs: roots}

	var tlsConn *tls.UConn
	if spec, err := chromeH1Spec(); err == nil {
		tlsConn = tls.UClient(conn, cfg, tls.HelloCustom)
		if err := tlsConn.ApplyPreset(spec); err != nil {
			conn.Close()
			return nil, fmt.Errorf("httpfetch: apply tls spec: %w", err)
		}
	} else {
		cfg.NextProtos = []string{"http/1.1"}
		tlsConn = tls.UClient(conn, cfg, tls.HelloGolang)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}
