// Package source abstracts where an input APK comes from. Providers
// register themselves in a global registry; the pipeline asks for one by
// name ("local", "mirror") and lets it produce a package file on disk.
package source

import (
	"context"
	"fmt"
	"sync"
)

// Request describes the package a provider should produce.
type Request struct {
	// Package is the Android application ID, e.g. com.google.android.youtube.
	Package string
	// Query is a free-text app name used by providers that search.
	Query string
	// DestDir is where the provider should place the file.
	DestDir string
}

// Provider acquires an APK (or split archive) and returns its local path.
type Provider interface {
	// Name returns the provider name (e.g. "local").
	Name() string
	// Acquire produces a package file on disk for the request.
	Acquire(ctx context.Context, req Request) (string, error)
}

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register adds a provider to the global registry.
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[p.Name()] = p
}

// Get returns a provider by name.
func Get(name string) (Provider, error) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", name)
	}
	return p, nil
}

// List returns all registered provider names.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}
