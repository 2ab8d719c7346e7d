package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/everstacklabs/apkforge/internal/mirror"
)

// Mirror downloads a package from a mirror site by walking its search,
// release, and download pages.
type Mirror struct {
	Client *mirror.Client
}

func (m *Mirror) Name() string { return "mirror" }

// Acquire searches the mirror for the request's query (falling back to
// the package name), follows the first result down to a direct link,
// and downloads it into DestDir.
func (m *Mirror) Acquire(ctx context.Context, req Request) (string, error) {
	query := req.Query
	if query == "" {
		query = req.Package
	}
	if query == "" {
		return "", fmt.Errorf("mirror source needs a package name or query")
	}

	apps, err := m.Client.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(apps) == 0 {
		return "", fmt.Errorf("no mirror results for %q", query)
	}
	app := apps[0]
	slog.Info("mirror search hit", "query", query, "app", app.Name)

	info, err := m.Client.ReleaseDetails(ctx, app.Link)
	if err != nil {
		return "", err
	}
	slog.Debug("mirror variant", "arch", info.Architecture, "android", info.AndroidVersion, "dpi", info.DPI)

	buttonURL, err := m.Client.DownloadLink(ctx, info.DownloadPage)
	if err != nil {
		return "", err
	}
	directURL, err := m.Client.DirectLink(ctx, buttonURL)
	if err != nil {
		return "", err
	}
	return m.Client.Download(ctx, directURL, req.DestDir)
}
