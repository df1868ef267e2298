// Package newswire queries a news-search API for articles that name a
// place, using a Redis-backed job queue so interrupted runs can be
// resumed.
package newswire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/placewatch/pkg/placewatch/extract"
	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
)

// ErrRateLimited is returned once every configured API key has been
// rejected with HTTP 429.
var ErrRateLimited = errors.New("newswire: all api keys rate limited")

const searchTimeout = 30 * time.Second

// DateFormat is the wire format for begin_date and end_date.
const DateFormat = "20060102"

// Job asks for one place name over one date range.
type Job struct {
	PlaceID   int64  `json:"place_id"`
	PlaceName string `json:"place_name"`
	BeginDate string `json:"begin_date"`
	EndDate   string `json:"end_date"`
}

// searchResponse mirrors the article search API payload.
type searchResponse struct {
	Response struct {
		Docs []searchDoc `json:"docs"`
	} `json:"response"`
}

type searchDoc struct {
	ID       string `json:"_id"`
	WebURL   string `json:"web_url"`
	Snippet  string `json:"snippet"`
	Abstract string `json:"abstract"`
	PubDate  string `json:"pub_date"`
	Headline struct {
		Main string `json:"main"`
	} `json:"headline"`
}

// Client queries the search API. Keys rotate when the active one is
// rate limited; the client fails with ErrRateLimited only after a full
// rotation.
type Client struct {
	endpoint string
	keys     []string
	active   int
	client   *http.Client

	// PageSize caps the hits per request when positive; zero leaves
	// the API default in place.
	PageSize int
}

// NewClient returns a Client for the given endpoint and key set.
func NewClient(endpoint string, keys []string, httpClient *http.Client) (*Client, error) {
	if endpoint == "" || len(keys) == 0 {
		return nil, fmt.Errorf("%w: newswire endpoint and api keys required", internalerr.ErrInvalidConfig)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: searchTimeout}
	}
	return &Client{endpoint: endpoint, keys: keys, client: httpClient}, nil
}

// Search runs one job against the API and maps the hits to entries. An
// empty result set is a normal outcome, not an error.
func (c *Client) Search(ctx context.Context, job Job) ([]extract.Entry, error) {
	for tries := 0; tries < len(c.keys); tries++ {
		entries, err := c.searchWithKey(ctx, job, c.keys[c.active])
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, errKeyLimited) {
			return nil, err
		}
		c.active = (c.active + 1) % len(c.keys)
	}
	return nil, ErrRateLimited
}

var errKeyLimited = errors.New("newswire: api key rate limited")

func (c *Client) searchWithKey(ctx context.Context, job Job, key string) ([]extract.Entry, error) {
	params := url.Values{}
	params.Set("q", job.PlaceName)
	params.Set("begin_date", job.BeginDate)
	params.Set("end_date", job.EndDate)
	params.Set("api-key", key)
	if c.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(c.PageSize))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", job.PlaceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, errKeyLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: HTTP %d", job.PlaceName, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	var entries []extract.Entry
	for _, doc := range sr.Response.Docs {
		e, ok := docEntry(doc)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// The API emits offsets without a colon ("+0000"); RFC 3339 and
// offset-less dates also appear.
var pubDateLayouts = []string{
	"2006-01-02T15:04:05Z0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parsePubDate(raw string) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func docEntry(doc searchDoc) (extract.Entry, bool) {
	date, ok := parsePubDate(doc.PubDate)
	if !ok {
		return extract.Entry{}, false
	}
	summary := doc.Abstract
	if summary == "" {
		summary = doc.Snippet
	}
	e := extract.Entry{
		ContentID: doc.ID,
		Title:     strings.TrimSpace(doc.Headline.Main),
		Link:      doc.WebURL,
		Summary:   strings.TrimSpace(summary),
		Date:      date,
	}
	if e.Title == "" || e.Link == "" {
		return extract.Entry{}, false
	}
	return e, true
}
