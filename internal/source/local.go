package source

import (
	"context"
	"fmt"

	"github.com/everstacklabs/apkforge/internal/apkfile"
)

// Local serves the newest package file found under a directory tree.
type Local struct {
	// Root is the directory scanned for package files.
	Root string
}

func (l *Local) Name() string { return "local" }

// Acquire returns the newest package file under Root. The request's
// DestDir is ignored; the file is used in place.
func (l *Local) Acquire(ctx context.Context, req Request) (string, error) {
	found, err := apkfile.Discover(l.Root)
	if err != nil {
		return "", fmt.Errorf("scanning %s: %w", l.Root, err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no package files under %s", l.Root)
	}
	return found[0].Path, nil
}
