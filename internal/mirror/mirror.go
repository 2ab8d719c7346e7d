// Package mirror scrapes an APK mirror site: search, release details,
// and the multi-hop resolution down to a direct download link. Every
// request goes through the shared rate-limited HTTP client; rows missing
// expected nodes are skipped, not fatal.
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/everstacklabs/apkforge/internal/httpclient"
)

// App is one search result row.
type App struct {
	Name string
	Link string
}

// ReleaseInfo is the variant table of an app release page.
type ReleaseInfo struct {
	Architecture   string
	AndroidVersion string
	DPI            string
	DownloadPage   string
}

// Client scrapes a mirror site rooted at BaseURL.
type Client struct {
	http      *httpclient.Client
	baseURL   string
	userAgent string
	results   int
}

// New creates a mirror client. results caps how many search rows are
// returned.
func New(hc *httpclient.Client, baseURL, userAgent string, results int) *Client {
	if results <= 0 {
		results = 1
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, results: results}
}

func (c *Client) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.http.Get(ctx, pageURL, map[string]string{
		"User-Agent": c.userAgent,
		"Accept":     "text/html,application/xhtml+xml",
	})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", pageURL, err)
	}
	return doc, nil
}

// Search queries the mirror for query and returns up to the configured
// number of app rows.
func (c *Client) Search(ctx context.Context, query string) ([]App, error) {
	searchURL := c.baseURL + "/?post_type=app_release&searchtype=apk&s=" + url.QueryEscape(query)
	doc, err := c.fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("searching mirror: %w", err)
	}

	apps := parseSearch(doc, c.baseURL)
	if len(apps) > c.results {
		apps = apps[:c.results]
	}
	return apps, nil
}

func parseSearch(doc *goquery.Document, baseURL string) []App {
	var apps []App
	doc.Find("div.appRow").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("h5.appRowTitle").First().Text())
		href, ok := row.Find("a.downloadLink").First().Attr("href")
		if name == "" || !ok {
			return
		}
		apps = append(apps, App{Name: name, Link: baseURL + href})
	})
	return apps
}

// ReleaseDetails scrapes the variant table of an app release page.
func (c *Client) ReleaseDetails(ctx context.Context, appLink string) (*ReleaseInfo, error) {
	doc, err := c.fetch(ctx, appLink)
	if err != nil {
		return nil, fmt.Errorf("fetching release page: %w", err)
	}
	info := parseDetails(doc, c.baseURL)
	if info == nil {
		return nil, fmt.Errorf("no variant row on %s", appLink)
	}
	return info, nil
}

func parseDetails(doc *goquery.Document, baseURL string) *ReleaseInfo {
	// The first table-row is the header; the variant data starts at the
	// second.
	rows := doc.Find("div.table-row")
	if rows.Length() < 2 {
		return nil
	}
	row := rows.Eq(1)

	cells := row.Find("div.table-cell")
	if cells.Length() < 4 {
		return nil
	}
	href, ok := row.Find("a.accent_color").First().Attr("href")
	if !ok {
		return nil
	}

	return &ReleaseInfo{
		Architecture:   strings.TrimSpace(cells.Eq(1).Text()),
		AndroidVersion: strings.TrimSpace(cells.Eq(2).Text()),
		DPI:            strings.TrimSpace(cells.Eq(3).Text()),
		DownloadPage:   baseURL + href,
	}
}

// DownloadLink resolves a variant download page to its button target.
func (c *Client) DownloadLink(ctx context.Context, pageURL string) (string, error) {
	doc, err := c.fetch(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetching download page: %w", err)
	}
	href := parseDownloadButton(doc)
	if href == "" {
		return "", fmt.Errorf("no download button on %s", pageURL)
	}
	return c.baseURL + href, nil
}

func parseDownloadButton(doc *goquery.Document) string {
	href, _ := doc.Find("a.downloadButton").First().Attr("href")
	return href
}

// DirectLink resolves the button page to the final download.php URL.
func (c *Client) DirectLink(ctx context.Context, buttonURL string) (string, error) {
	doc, err := c.fetch(ctx, buttonURL)
	if err != nil {
		return "", fmt.Errorf("fetching button page: %w", err)
	}
	href := parseDirectLink(doc)
	if href == "" {
		return "", fmt.Errorf("no direct link on %s", buttonURL)
	}
	return c.baseURL + href, nil
}

func parseDirectLink(doc *goquery.Document) string {
	var found string
	doc.Find(`a[rel="nofollow"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if ok && strings.Contains(href, "/wp-content/themes/APKMirror/download.php") {
			found = href
			return false
		}
		return true
	})
	return found
}

// Download streams directURL into destDir and returns the local path.
// The filename is taken from the URL path, which the mirror keeps stable
// through its redirect chain.
func (c *Client) Download(ctx context.Context, directURL, destDir string) (string, error) {
	name := "download.apk"
	if u, err := url.Parse(directURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			if unescaped, err := url.PathUnescape(base); err == nil {
				name = unescaped
			}
		}
	}

	dest := filepath.Join(destDir, name)
	if err := c.http.Download(ctx, directURL, dest, map[string]string{"User-Agent": c.userAgent}); err != nil {
		return "", fmt.Errorf("downloading from mirror: %w", err)
	}
	return dest, nil
}
