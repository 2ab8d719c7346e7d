// Package pipeline orchestrates the full patching workflow: environment
// checks, toolchain fetching, APK acquisition, patch listing and
// selection, and finally the engine invocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/everstacklabs/apkforge/internal/apkfile"
	"github.com/everstacklabs/apkforge/internal/cache"
	"github.com/everstacklabs/apkforge/internal/config"
	"github.com/everstacklabs/apkforge/internal/engine"
	"github.com/everstacklabs/apkforge/internal/httpclient"
	"github.com/everstacklabs/apkforge/internal/mirror"
	"github.com/everstacklabs/apkforge/internal/patch"
	"github.com/everstacklabs/apkforge/internal/prompt"
	"github.com/everstacklabs/apkforge/internal/release"
	"github.com/everstacklabs/apkforge/internal/source"
	"github.com/everstacklabs/apkforge/internal/toolchain"
)

// Exit code constants for the CLI.
const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNoPatches = 2 // Nothing applicable after package filtering
	ExitCancelled = 3 // Operator aborted an interactive prompt
)

// SelectFunc picks patches from a catalog and returns raw choices.
type SelectFunc func([]*patch.Record) ([]patch.Choice, error)

// Pipeline runs the workflow for one configuration. Select and Ask are
// swappable so tests can run without a terminal.
type Pipeline struct {
	cfg    *config.Config
	Select SelectFunc
	Ask    patch.AskFunc
}

// New creates a pipeline wired to the interactive prompt layer.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg, Select: prompt.SelectPatches, Ask: prompt.Ask}
}

// BuildOptions are the per-invocation knobs of the build command.
type BuildOptions struct {
	// APK is an explicit input path; empty means acquire from Source.
	APK string
	// Source names the acquisition provider ("local", "mirror").
	Source string
	// Query is the free-text app name for searching providers.
	Query string
	// Extra is appended verbatim to the engine argument list.
	Extra []string
	// Run executes the engine instead of only printing the command.
	Run bool
}

// Toolchain holds the resolved local paths of the external tools.
type Toolchain struct {
	CLIJar    string
	BundleJar string
	MergeJar  string
}

func (p *Pipeline) httpClient(progress bool) (*httpclient.Client, error) {
	opts := []httpclient.Option{httpclient.WithRateLimit(p.cfg.Mirror.RPS)}
	if p.cfg.NoCache {
		opts = append(opts, httpclient.WithNoCache())
	} else {
		ttl, err := time.ParseDuration(p.cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache_ttl %q: %w", p.cfg.CacheTTL, err)
		}
		fc, err := cache.New(p.cfg.CacheDir, ttl)
		if err != nil {
			return nil, fmt.Errorf("opening HTTP cache: %w", err)
		}
		opts = append(opts, httpclient.WithCache(fc))
	}
	if progress {
		opts = append(opts, httpclient.WithProgress())
	}
	return httpclient.New(opts...), nil
}

// FetchToolchain ensures the engine CLI, the patch bundle, and the
// merge tool are present locally, downloading the latest releases as
// needed.
func (p *Pipeline) FetchToolchain(ctx context.Context) (*Toolchain, error) {
	hc, err := p.httpClient(true)
	if err != nil {
		return nil, err
	}
	store, err := cache.OpenArtifacts(filepath.Join(p.cfg.CacheDir, "artifacts"))
	if err != nil {
		return nil, fmt.Errorf("opening artifact store: %w", err)
	}
	rc, err := release.NewClient(ctx, p.cfg.GitHub.Token, hc, store, p.cfg.Offline)
	if err != nil {
		return nil, err
	}

	cli, err := rc.Ensure(ctx, "cli", p.cfg.Engine.CLIRepo, ".jar", "all")
	if err != nil {
		return nil, fmt.Errorf("fetching engine CLI: %w", err)
	}
	bundle, err := rc.Ensure(ctx, "patches", p.cfg.Engine.PatchesRepo, ".rvp", "patches")
	if err != nil {
		return nil, fmt.Errorf("fetching patch bundle: %w", err)
	}
	merge, err := rc.Ensure(ctx, "merge-tool", p.cfg.Engine.MergeToolRepo, ".jar", "APKEditor")
	if err != nil {
		return nil, fmt.Errorf("fetching merge tool: %w", err)
	}
	return &Toolchain{CLIJar: cli, BundleJar: bundle, MergeJar: merge}, nil
}

func (p *Pipeline) javaEngine(tc *Toolchain) *engine.Java {
	return engine.NewJava("", p.cfg.Engine.JavaOpts, tc.CLIJar, tc.BundleJar)
}

// Doctor runs environment diagnostics and prints each finding. It
// returns ExitError when any check failed.
func (p *Pipeline) Doctor(ctx context.Context) int {
	result := toolchain.Doctor(ctx)
	for _, issue := range result.Issues {
		fmt.Println(issue)
	}
	if result.JavaVersion > 0 {
		fmt.Printf("java major version: %d\n", result.JavaVersion)
	}
	if result.HasErrors() {
		return ExitError
	}
	fmt.Println("environment looks good")
	return ExitSuccess
}

// Catalog fetches the raw listing through the lister and returns the
// parsed records filtered to pkg. An empty pkg keeps everything.
func (p *Pipeline) Catalog(ctx context.Context, lister engine.Lister, pkg string) ([]*patch.Record, error) {
	listing, err := lister.ListPatches(ctx)
	if err != nil {
		return nil, err
	}
	records := patch.Parse(listing)
	slog.Info("parsed patch listing", "total", len(records))
	return patch.FilterByPackage(records, pkg, p.cfg.Patching.IncludeUniversal), nil
}

// Patches fetches the toolchain and returns the parsed catalog
// filtered to pkg.
func (p *Pipeline) Patches(ctx context.Context, pkg string) ([]*patch.Record, error) {
	tc, err := p.FetchToolchain(ctx)
	if err != nil {
		return nil, err
	}
	return p.Catalog(ctx, p.javaEngine(tc), pkg)
}

// resolveSelections runs interactive selection and option binding over
// records and serializes the result into engine arguments. The exit
// code is nonzero when the run should stop without patching.
func (p *Pipeline) resolveSelections(records []*patch.Record, extra []string, output, input string) ([]string, int, error) {
	if len(records) == 0 {
		return nil, ExitNoPatches, fmt.Errorf("no applicable patches for this package")
	}

	choices, err := p.Select(records)
	if err != nil {
		if errors.Is(err, prompt.ErrCancelled) {
			return nil, ExitCancelled, err
		}
		return nil, ExitError, err
	}
	if len(choices) == 0 {
		return nil, ExitCancelled, fmt.Errorf("nothing selected")
	}

	selections, err := patch.Resolve(records, choices, p.Ask)
	if err != nil {
		if errors.Is(err, prompt.ErrCancelled) {
			return nil, ExitCancelled, err
		}
		return nil, ExitError, err
	}

	signing := &patch.Signing{
		Keystore:         p.cfg.Signing.Keystore,
		KeystorePassword: p.cfg.Signing.KeystorePassword,
		KeyAlias:         p.cfg.Signing.KeyAlias,
		KeyPassword:      p.cfg.Signing.KeyPassword,
	}
	args := patch.BuildArgs(p.cfg.Patching.Exclusive, selections, signing, extra, output, input)
	return args, ExitSuccess, nil
}

// acquireAPK produces the input APK: an explicit path wins, otherwise
// the named source provider runs. Split archives are merged first.
func (p *Pipeline) acquireAPK(ctx context.Context, opts BuildOptions, merger engine.Merger) (string, error) {
	path := opts.APK
	if path == "" {
		name := opts.Source
		if name == "" {
			name = "local"
		}
		provider, err := source.Get(name)
		if err != nil {
			return "", err
		}
		path, err = provider.Acquire(ctx, source.Request{Query: opts.Query, DestDir: p.cfg.OutputDir})
		if err != nil {
			return "", fmt.Errorf("acquiring APK: %w", err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("input APK: %w", err)
	}

	if !apkfile.IsSplit(path) {
		return path, nil
	}

	splitDir, err := os.MkdirTemp(p.cfg.OutputDir, "splits-*")
	if err != nil {
		return "", fmt.Errorf("creating split dir: %w", err)
	}
	defer os.RemoveAll(splitDir)

	n, err := apkfile.ExtractSplits(path, splitDir)
	if err != nil {
		return "", err
	}
	slog.Info("extracted split archive", "entries", n, "archive", filepath.Base(path))

	merged := filepath.Join(p.cfg.OutputDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"-merged.apk")
	if err := merger.Merge(ctx, splitDir, merged); err != nil {
		return "", err
	}
	return merged, nil
}

func (p *Pipeline) registerSources() error {
	source.Register(&source.Local{Root: "."})

	hc, err := p.httpClient(true)
	if err != nil {
		return err
	}
	mc := mirror.New(hc, p.cfg.Mirror.BaseURL, p.cfg.Mirror.UserAgent, p.cfg.Mirror.Results)
	source.Register(&source.Mirror{Client: mc})
	return nil
}

// Build runs the full workflow and returns a process exit code.
func (p *Pipeline) Build(ctx context.Context, opts BuildOptions) (int, error) {
	if code := p.Doctor(ctx); code != ExitSuccess {
		return code, fmt.Errorf("environment checks failed")
	}
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return ExitError, fmt.Errorf("creating output dir: %w", err)
	}
	if err := p.registerSources(); err != nil {
		return ExitError, err
	}

	tc, err := p.FetchToolchain(ctx)
	if err != nil {
		return ExitError, err
	}
	eng := p.javaEngine(tc)
	merger := &engine.APKEditor{Jar: tc.MergeJar}

	input, err := p.acquireAPK(ctx, opts, merger)
	if err != nil {
		return ExitError, err
	}

	info, err := apkfile.DetectPackage(ctx, input)
	if err != nil {
		return ExitError, err
	}
	slog.Info("input APK", "package", info.Package, "version", info.VersionName)

	records, err := p.Catalog(ctx, eng, info.Package)
	if err != nil {
		return ExitError, err
	}

	output := filepath.Join(p.cfg.OutputDir, info.Package+"-patched.apk")
	args, code, err := p.resolveSelections(records, opts.Extra, output, input)
	if code != ExitSuccess {
		return code, err
	}

	fmt.Println(QuoteCommand(eng.PatchCommandLine(args)))
	if !opts.Run {
		return ExitSuccess, nil
	}
	if err := eng.Patch(ctx, args); err != nil {
		return ExitError, err
	}
	fmt.Printf("wrote %s\n", output)
	return ExitSuccess, nil
}

// QuoteCommand renders an argv for display, shell-quoting arguments
// that need it.
func QuoteCommand(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t'\"\\$&|;<>()*?[]#~") {
			quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}
