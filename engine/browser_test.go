package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cascade/browser"
	"github.com/use-agent/cascade/models"
)

type fakeProvider struct {
	browser *fakeBrowser
	engines []string
	reports []bool
}

func (p *fakeProvider) Acquire(_ context.Context, engine string) (browser.Browser, error) {
	p.engines = append(p.engines, engine)
	return p.browser, nil
}

func (p *fakeProvider) Report(_ string, _ browser.Browser, ok bool) {
	p.reports = append(p.reports, ok)
}

type fakeBrowser struct {
	page       *fakePage
	opts       browser.ContextOptions
	contexts   []*fakeContext
	contextErr error
}

func (b *fakeBrowser) NewContext(_ context.Context, opts browser.ContextOptions) (browser.Context, error) {
	if b.contextErr != nil {
		return nil, b.contextErr
	}
	b.opts = opts
	c := &fakeContext{page: b.page}
	b.contexts = append(b.contexts, c)
	return c, nil
}

func (b *fakeBrowser) Close() error { return nil }

type fakeContext struct {
	page     *fakePage
	pageOpts browser.PageOptions
	closed   atomic.Int32
}

func (c *fakeContext) NewPage(_ context.Context, opts browser.PageOptions) (browser.Page, error) {
	c.pageOpts = opts
	return c.page, nil
}

func (c *fakeContext) Close() error {
	c.closed.Add(1)
	return nil
}

type fakePage struct {
	resp     *browser.Response
	err      error
	gotoOpts browser.GotoOptions
}

func (p *fakePage) Goto(_ context.Context, _ string, opts browser.GotoOptions) (*browser.Response, error) {
	p.gotoOpts = opts
	return p.resp, p.err
}

func (p *fakePage) HTML(context.Context) (string, error) { return "<html></html>", nil }
func (p *fakePage) Title(context.Context) string         { return "" }

func newFakeProvider(page *fakePage) *fakeProvider {
	return &fakeProvider{browser: &fakeBrowser{page: page}}
}

func TestBrowserExecutorSuccess(t *testing.T) {
	page := &fakePage{resp: &browser.Response{StatusCode: 200, URL: "https://example.com"}}
	provider := newFakeProvider(page)
	exec := NewBrowserExecutor(provider)

	cfg := &models.ScrapeConfig{
		Browser: models.BrowserOptions{
			Engine:               "chrome",
			AllowedResourceTypes: []string{"document"},
			Stealth:              true,
		},
	}
	vp := &models.Viewport{Width: 800, Height: 600}
	opts := models.RequestOptions{Proxy: "http://proxy:1", UserAgent: "ua", Viewport: vp}

	res, err := exec.Execute(context.Background(), "https://example.com", cfg, opts)
	require.NoError(t, err)
	br, ok := res.(*BrowserResult)
	require.True(t, ok)
	assert.Equal(t, models.MechanismBrowser, br.Mechanism())
	assert.Same(t, page, br.Page)

	assert.Equal(t, []string{"chrome"}, provider.engines)
	assert.Equal(t, "http://proxy:1", provider.browser.opts.Proxy)
	assert.Equal(t, "ua", provider.browser.opts.UserAgent)
	assert.Same(t, vp, provider.browser.opts.Viewport)
	assert.Equal(t, browser.WaitLoad, page.gotoOpts.WaitUntil)

	ctxt := provider.browser.contexts[0]
	assert.Equal(t, []string{"document"}, ctxt.pageOpts.AllowedResourceTypes)
	assert.True(t, ctxt.pageOpts.Stealth)
	assert.Zero(t, ctxt.closed.Load(), "context stays open until Cleanup")
	assert.Equal(t, []bool{true}, provider.reports)

	require.NoError(t, br.Cleanup())
	require.NoError(t, br.Cleanup())
	assert.Equal(t, int32(1), ctxt.closed.Load())
}

func TestBrowserExecutorClosesContextOnValidationFailure(t *testing.T) {
	page := &fakePage{resp: &browser.Response{StatusCode: 200}}
	provider := newFakeProvider(page)
	exec := NewBrowserExecutor(provider)

	var closedAtValidation int32 = -1
	cfg := &models.ScrapeConfig{
		Options: models.Options{
			Validate: func(_ context.Context, in models.ValidationInput) (bool, error) {
				closedAtValidation = provider.browser.contexts[0].closed.Load()
				_, ok := in.Response.(*browser.Response)
				assert.True(t, ok)
				return false, nil
			},
		},
	}

	_, err := exec.Execute(context.Background(), "https://example.com", cfg, models.RequestOptions{})
	assert.Equal(t, models.ErrCodeValidation, models.CodeOf(err))
	assert.Equal(t, int32(0), closedAtValidation)
	assert.Equal(t, int32(1), provider.browser.contexts[0].closed.Load())
}

func TestBrowserExecutorClosesContextOnNavigationFailure(t *testing.T) {
	tests := []struct {
		name     string
		page     *fakePage
		wantCode string
	}{
		{"navigation error", &fakePage{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}, models.ErrCodeNavigation},
		{"navigation timeout", &fakePage{err: context.DeadlineExceeded}, models.ErrCodeTimeout},
		{"no response", &fakePage{}, models.ErrCodeNoResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider(tt.page)
			_, err := NewBrowserExecutor(provider).Execute(context.Background(), "https://example.com", &models.ScrapeConfig{}, models.RequestOptions{})
			assert.Equal(t, tt.wantCode, models.CodeOf(err))
			require.Len(t, provider.browser.contexts, 1)
			assert.Equal(t, int32(1), provider.browser.contexts[0].closed.Load())
		})
	}
}

func TestBrowserExecutorRetriesOpenFreshContexts(t *testing.T) {
	page := &fakePage{err: errors.New("crashed")}
	provider := newFakeProvider(page)
	d := NewDispatcher([]Executor{NewBrowserExecutor(provider)})
	cfg := &models.ScrapeConfig{
		Strategies: []models.Strategy{{Mechanism: models.MechanismBrowser}},
		Options:    models.Options{Retry: &models.RetryPolicy{Count: 2, Delay: 1}},
	}

	_, err := d.Dispatch(context.Background(), "https://example.com", cfg)
	require.Error(t, err)
	require.Len(t, provider.browser.contexts, 3)
	for _, c := range provider.browser.contexts {
		assert.Equal(t, int32(1), c.closed.Load())
	}
}

func TestBrowserExecutorReportsContextFailures(t *testing.T) {
	provider := newFakeProvider(&fakePage{})
	provider.browser.contextErr = errors.New("target closed")

	_, err := NewBrowserExecutor(provider).Execute(context.Background(), "https://example.com", &models.ScrapeConfig{}, models.RequestOptions{})
	assert.Equal(t, models.ErrCodeNavigation, models.CodeOf(err))
	assert.Equal(t, []bool{false}, provider.reports)
}
