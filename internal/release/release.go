// Package release fetches toolchain artifacts (patch engine jar, patch
// bundle, merge tool) from GitHub releases, with a tag-keyed artifact
// cache and an offline fallback.
package release

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/go-github/v60/github"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/oauth2"

	"github.com/everstacklabs/apkforge/internal/cache"
	"github.com/everstacklabs/apkforge/internal/httpclient"
)

// Release is the subset of a GitHub release the fetcher cares about.
type Release struct {
	Tag    string
	Assets []Asset
}

// Asset is one downloadable release file.
type Asset struct {
	Name string
	URL  string
}

// Client looks up latest releases and materializes their assets on disk.
// Release lookups are memoized per repository for the client's lifetime;
// the memo is an explicit cache owned here, not process-global state.
type Client struct {
	gh      *github.Client
	http    *httpclient.Client
	store   *cache.ArtifactStore
	memo    *lru.Cache[string, *Release]
	offline bool
}

// NewClient creates a release client. token may be empty for anonymous
// API access (subject to stricter rate limits).
func NewClient(ctx context.Context, token string, hc *httpclient.Client, store *cache.ArtifactStore, offline bool) (*Client, error) {
	var gh *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		gh = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		gh = github.NewClient(nil)
	}

	memo, err := lru.New[string, *Release](8)
	if err != nil {
		return nil, fmt.Errorf("creating release memo: %w", err)
	}

	return &Client{gh: gh, http: hc, store: store, memo: memo, offline: offline}, nil
}

// Latest returns the latest release of repo ("owner/name").
func (c *Client) Latest(ctx context.Context, repo string) (*Release, error) {
	if rel, ok := c.memo.Get(repo); ok {
		return rel, nil
	}

	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return nil, fmt.Errorf("invalid repository %q: want owner/name", repo)
	}

	ghRel, _, err := c.gh.Repositories.GetLatestRelease(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetching latest release of %s: %w", repo, err)
	}
	if ghRel.GetTagName() == "" {
		return nil, fmt.Errorf("latest release of %s has no tag", repo)
	}

	rel := &Release{Tag: ghRel.GetTagName()}
	for _, a := range ghRel.Assets {
		if a.GetBrowserDownloadURL() == "" {
			continue
		}
		rel.Assets = append(rel.Assets, Asset{
			Name: a.GetName(),
			URL:  a.GetBrowserDownloadURL(),
		})
	}

	c.memo.Add(repo, rel)
	return rel, nil
}

// PickAsset selects the asset with the wanted extension, preferring names
// containing keyword. Matching is case-insensitive.
func PickAsset(assets []Asset, ext, keyword string) (Asset, bool) {
	var matching []Asset
	for _, a := range assets {
		if strings.HasSuffix(strings.ToLower(a.Name), strings.ToLower(ext)) {
			matching = append(matching, a)
		}
	}
	if keyword != "" {
		for _, a := range matching {
			if strings.Contains(strings.ToLower(a.Name), strings.ToLower(keyword)) {
				return a, true
			}
		}
	}
	if len(matching) > 0 {
		return matching[0], true
	}
	return Asset{}, false
}

// Ensure returns a local path for the keyword-matching asset of repo's
// latest release, downloading it only when the cached copy is missing or
// carries an older tag. In offline mode whatever is cached wins; a failed
// download also falls back to a stale cached copy when one exists.
func (c *Client) Ensure(ctx context.Context, key, repo, ext, keyword string) (string, error) {
	if c.offline {
		if p, ok := c.store.LookupAny(key); ok {
			slog.Info("offline: using cached artifact", "key", key, "path", p)
			return p, nil
		}
		return "", fmt.Errorf("offline and %s is not cached", key)
	}

	rel, err := c.Latest(ctx, repo)
	if err != nil {
		if p, ok := c.store.LookupAny(key); ok {
			slog.Warn("release lookup failed, using cached artifact", "key", key, "error", err)
			return p, nil
		}
		return "", err
	}

	asset, ok := PickAsset(rel.Assets, ext, keyword)
	if !ok {
		return "", fmt.Errorf("release %s of %s has no %s asset", rel.Tag, repo, ext)
	}
	filename := asset.Name
	if filename == "" {
		filename = path.Base(asset.URL)
	}

	if p, ok := c.store.Lookup(key, rel.Tag); ok {
		slog.Info("using cached artifact", "key", key, "tag", rel.Tag)
		return p, nil
	}

	dest := c.store.Path(filename)
	slog.Info("downloading artifact", "key", key, "tag", rel.Tag, "url", asset.URL)
	if err := c.http.Download(ctx, asset.URL, dest, nil); err != nil {
		if p, ok := c.store.LookupAny(key); ok {
			slog.Warn("download failed, using stale cached artifact", "key", key, "error", err)
			return p, nil
		}
		return "", fmt.Errorf("downloading %s: %w", key, err)
	}

	if err := c.store.Record(key, rel.Tag, filename, asset.URL); err != nil {
		return "", fmt.Errorf("recording artifact: %w", err)
	}
	return dest, nil
}
