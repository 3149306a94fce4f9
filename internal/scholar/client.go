// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar reads author profiles and publication details from Google
// Scholar citation pages. It owns transport, HTML parsing, request pacing,
// and block detection; callers see only Profile, PublicationStub, and
// BibRecord values.
package scholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pdiddy/pubfetch/pkg/types"
)

const (
	citationsPath = "/citations"

	// maxPageSize is the largest pagesize the profile table accepts.
	maxPageSize = 100
)

// errNotFound is returned by get on HTTP 404 so callers can map it to
// their own sentinel.
var errNotFound = errors.New("not found")

// Client fetches and parses Scholar pages. It is not safe for concurrent use.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	limiter    *rate.Limiter
	baseURL    *url.URL
	userAgent  string
}

// NewClient builds a client for the Scholar origin at baseURL. It fails only
// when the client cannot be constructed at all, which callers treat as fatal.
func NewClient(baseURL string, cfg types.HTTPConfig) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing scholar base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid scholar base URL %q: need an absolute http(s) URL", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultHTTPTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = types.DefaultUserAgent
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   timeout,
		},
		transport: transport,
		baseURL:   u,
		userAgent: userAgent,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

// UseProxy routes subsequent requests through proxyURL. A nil URL restores
// direct connections.
func (c *Client) UseProxy(proxyURL *url.URL) {
	if proxyURL == nil {
		c.transport.Proxy = nil
	} else {
		c.transport.Proxy = http.ProxyURL(proxyURL)
	}
	c.transport.CloseIdleConnections()
}

// LookupProfile resolves the profile with the given user identifier.
func (c *Client) LookupProfile(ctx context.Context, id string) (Profile, error) {
	if strings.TrimSpace(id) == "" {
		return Profile{}, fmt.Errorf("%w: empty profile id", ErrProfileNotFound)
	}

	params := url.Values{"user": {id}, "hl": {"en"}}
	doc, err := c.get(ctx, c.pageURL(params))
	if errors.Is(err, errNotFound) {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("fetching profile %s: %w", id, err)
	}

	name := strings.TrimSpace(doc.Find("#gsc_prf_in").First().Text())
	if name == "" {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return Profile{
		ID:          id,
		Name:        name,
		Affiliation: strings.TrimSpace(doc.Find(".gsc_prf_il").First().Text()),
	}, nil
}

// ListPublications returns up to limit stubs from the profile's publication
// table, in the order the source lists them. limit <= 0 means no limit.
func (c *Client) ListPublications(ctx context.Context, p Profile, limit int) ([]PublicationStub, error) {
	stubs := []PublicationStub{}
	for cstart := 0; ; {
		pageSize := maxPageSize
		if limit > 0 && limit-len(stubs) < pageSize {
			pageSize = limit - len(stubs)
		}

		params := url.Values{
			"user":     {p.ID},
			"hl":       {"en"},
			"cstart":   {strconv.Itoa(cstart)},
			"pagesize": {strconv.Itoa(pageSize)},
		}
		doc, err := c.get(ctx, c.pageURL(params))
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, p.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("listing publications (cstart=%d): %w", cstart, err)
		}

		rows := doc.Find("tr.gsc_a_tr")
		rows.Each(func(_ int, row *goquery.Selection) {
			if stub, ok := c.parseRow(row); ok {
				stubs = append(stubs, stub)
			}
		})

		n := rows.Length()
		if n < pageSize || (limit > 0 && len(stubs) >= limit) {
			break
		}
		cstart += n
	}

	if limit > 0 && len(stubs) > limit {
		stubs = stubs[:limit]
	}
	return stubs, nil
}

// FetchDetail loads the citation detail page for stub. Fields missing from
// the detail page fall back to what the listing row carried.
func (c *Client) FetchDetail(ctx context.Context, stub PublicationStub) (BibRecord, error) {
	if stub.DetailURL == "" {
		return BibRecord{}, fmt.Errorf("publication %q has no detail link", stub.Title)
	}

	doc, err := c.get(ctx, stub.DetailURL)
	if err != nil {
		return BibRecord{}, fmt.Errorf("fetching detail for %q: %w", stub.Title, err)
	}
	if doc.Find("#gsc_oci_title").Length() == 0 {
		return BibRecord{}, fmt.Errorf("detail page for %q has no title block", stub.Title)
	}
	return c.parseDetail(doc, stub), nil
}

// pageURL builds an absolute citations URL with params.
func (c *Client) pageURL(params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + citationsPath
	u.RawQuery = params.Encode()
	return u.String()
}

// resolve turns a page-relative link into an absolute URL. Empty and
// javascript: links resolve to "".
func (c *Client) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return c.baseURL.ResolveReference(ref).String()
}

// get fetches rawURL and parses it as HTML, mapping rate-limit and captcha
// responses to ErrBlocked.
func (c *Client) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: HTTP %d", ErrBlocked, resp.StatusCode)
	case resp.Request != nil && strings.Contains(resp.Request.URL.Path, "/sorry/"):
		return nil, fmt.Errorf("%w: redirected to %s", ErrBlocked, resp.Request.URL.Path)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("scholar returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	if doc.Find("#gs_captcha_f, #captcha-form").Length() > 0 {
		return nil, fmt.Errorf("%w: captcha page", ErrBlocked)
	}
	return doc, nil
}
