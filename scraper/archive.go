package scraper

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/use-agent/cascade/engine"
	"github.com/use-agent/cascade/models"
)

// DefaultArchiveEndpoint is the Wayback Machine availability API.
const DefaultArchiveEndpoint = "https://archive.org/wayback/available"

const maxArchiveBody = 10 << 20

// ArchivedPage is a snapshot served by the archive.
type ArchivedPage struct {
	HTML        string
	SnapshotURL string
	Timestamp   string
	StatusCode  int
}

// PageHTML implements HTMLer.
func (p *ArchivedPage) PageHTML() (string, string, int) {
	return p.HTML, p.SnapshotURL, p.StatusCode
}

type availability struct {
	ArchivedSnapshots struct {
		Closest *struct {
			Available bool   `json:"available"`
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
			Status    string `json:"status"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// ArchiveFetcher retrieves the closest archived snapshot of a page. Its
// Fetch method is a models.CustomFunc, used as the last strategy of a
// cascade when the live site cannot be reached.
type ArchiveFetcher struct {
	transport engine.Transport
	endpoint  string
}

// NewArchiveFetcher creates an ArchiveFetcher that queries endpoint
// (DefaultArchiveEndpoint when empty) through transport.
func NewArchiveFetcher(transport engine.Transport, endpoint string) *ArchiveFetcher {
	if endpoint == "" {
		endpoint = DefaultArchiveEndpoint
	}
	return &ArchiveFetcher{transport: transport, endpoint: endpoint}
}

// Fetch returns an *ArchivedPage, or nil when no snapshot exists.
func (a *ArchiveFetcher) Fetch(ctx context.Context, target string, opts models.RequestOptions) (any, error) {
	lookup := a.endpoint + "?url=" + url.QueryEscape(target)
	body, _, err := a.get(ctx, lookup, opts)
	if err != nil {
		return nil, fmt.Errorf("archive: lookup: %w", err)
	}

	var avail availability
	if err := jsoniter.Unmarshal(body, &avail); err != nil {
		return nil, fmt.Errorf("archive: decode lookup: %w", err)
	}
	closest := avail.ArchivedSnapshots.Closest
	if closest == nil || !closest.Available || closest.URL == "" {
		return nil, nil
	}

	snapshot := rawSnapshotURL(closest.URL, closest.Timestamp)
	html, status, err := a.get(ctx, snapshot, opts)
	if err != nil {
		return nil, fmt.Errorf("archive: snapshot: %w", err)
	}
	return &ArchivedPage{
		HTML:        string(html),
		SnapshotURL: closest.URL,
		Timestamp:   closest.Timestamp,
		StatusCode:  status,
	}, nil
}

func (a *ArchiveFetcher) get(ctx context.Context, u string, opts models.RequestOptions) ([]byte, int, error) {
	headers := make(map[string]string, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	resp, err := a.transport.Do(ctx, &engine.TransportRequest{URL: u, Headers: headers, Proxy: opts.Proxy})
	if err != nil {
		return nil, 0, err
	}
	if resp == nil {
		return nil, 0, models.NewScrapeError(models.ErrCodeNoResponse, "archive returned no response", nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, &models.StatusError{StatusCode: resp.StatusCode, URL: u}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBody))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// rawSnapshotURL rewrites a snapshot URL to its "id_" form, which serves
// the archived bytes without the archive's toolbar.
func rawSnapshotURL(snapshot, timestamp string) string {
	if timestamp == "" {
		return snapshot
	}
	return strings.Replace(snapshot, "/web/"+timestamp+"/", "/web/"+timestamp+"id_/", 1)
}
