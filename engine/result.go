package engine

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/cascade/browser"
	"github.com/use-agent/cascade/models"
)

// Result is the outcome of a successful strategy. It is one of
// *NetworkResult, *BrowserResult or *CustomResult; callers type-switch on it.
type Result interface {
	// Mechanism reports the mechanism that produced the result.
	Mechanism() models.Mechanism

	sealed()
}

// NetworkResult is a response fetched over the network transport.
// The body is read eagerly so it can be consumed both raw and as a document.
type NetworkResult struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string

	docOnce sync.Once
	doc     *goquery.Document
	docErr  error
}

func (*NetworkResult) Mechanism() models.Mechanism { return models.MechanismNetwork }
func (*NetworkResult) sealed()                     {}

// Document parses the body on first call and returns the same document on
// every later call.
func (r *NetworkResult) Document() (*goquery.Document, error) {
	r.docOnce.Do(func() {
		r.doc, r.docErr = goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	})
	return r.doc, r.docErr
}

// BrowserResult holds a live page. The caller owns its browsing context and
// must call Cleanup once done with the page.
type BrowserResult struct {
	Response *browser.Response
	Page     browser.Page

	context    browser.Context
	cleanOnce  sync.Once
	cleanupErr error
}

func (*BrowserResult) Mechanism() models.Mechanism { return models.MechanismBrowser }
func (*BrowserResult) sealed()                     {}

// Cleanup closes the browsing context. Repeated calls return the first
// call's error without closing again.
func (r *BrowserResult) Cleanup() error {
	r.cleanOnce.Do(func() {
		if r.context != nil {
			r.cleanupErr = r.context.Close()
		}
	})
	return r.cleanupErr
}

// CustomResult wraps the value returned by a custom retrieval function.
type CustomResult struct {
	Value any
}

func (*CustomResult) Mechanism() models.Mechanism { return models.MechanismCustom }
func (*CustomResult) sealed()                     {}
