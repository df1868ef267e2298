// Package feed fetches RSS 2.0 and Atom feeds and converts their items
// into extraction entries.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/cognicore/placewatch/pkg/placewatch/extract"
)

const fetchTimeout = 30 * time.Second

// rssDocument covers both RSS 2.0 (channel/item) and Atom (entry)
// layouts in one unmarshal pass.
type rssDocument struct {
	Channel rssChannel `xml:"channel"`
	Entries []atomItem `xml:"entry"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"` // dc:date fallback
}

type atomItem struct {
	Title   string `xml:"title"`
	ID      string `xml:"id"`
	Summary string `xml:"summary"`
	Updated string `xml:"updated"`
	Links   []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
}

// Feeds publish dates in several layouts, most commonly RFC 1123.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Fetcher downloads feeds over HTTP and parses them into entries.
type Fetcher struct {
	client *http.Client
	log    zerolog.Logger
}

// NewFetcher returns a Fetcher. A nil client falls back to a default
// with a request timeout.
func NewFetcher(client *http.Client, log zerolog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{client: client, log: log}
}

// Fetch downloads the feed at url and returns its items as entries.
// Items that cannot be converted are logged and skipped rather than
// failing the whole feed.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]extract.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "placewatch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	return f.Parse(body, url)
}

// Parse converts raw feed XML into entries.
func (f *Fetcher) Parse(data []byte, source string) ([]extract.Entry, error) {
	var doc rssDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source, err)
	}

	var entries []extract.Entry
	for _, item := range doc.Channel.Items {
		e, err := rssEntry(item)
		if err != nil {
			f.log.Warn().Str("feed", source).Str("title", item.Title).Err(err).
				Msg("Skipping feed item")
			continue
		}
		entries = append(entries, e)
	}
	for _, item := range doc.Entries {
		e, err := atomEntry(item)
		if err != nil {
			f.log.Warn().Str("feed", source).Str("title", item.Title).Err(err).
				Msg("Skipping feed item")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func rssEntry(item rssItem) (extract.Entry, error) {
	raw := item.PubDate
	if raw == "" {
		raw = item.Date
	}
	date, err := parseDate(raw)
	if err != nil {
		return extract.Entry{}, err
	}
	return extract.Entry{
		ContentID: item.GUID,
		Title:     StripHTML(item.Title),
		Link:      strings.TrimSpace(item.Link),
		Summary:   StripHTML(item.Description),
		Date:      date,
	}, nil
}

func atomEntry(item atomItem) (extract.Entry, error) {
	date, err := parseDate(item.Updated)
	if err != nil {
		return extract.Entry{}, err
	}
	link := ""
	for _, l := range item.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			link = l.Href
			break
		}
	}
	return extract.Entry{
		ContentID: item.ID,
		Title:     StripHTML(item.Title),
		Link:      strings.TrimSpace(link),
		Summary:   StripHTML(item.Summary),
		Date:      date,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing publication date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// StripHTML extracts the text content of an HTML fragment. Feed
// summaries frequently embed markup that would pollute sentence
// scanning.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
