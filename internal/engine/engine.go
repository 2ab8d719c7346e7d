// Package engine is the boundary to the external patching toolchain.
// Everything that spawns a subprocess lives here; the rest of the
// program works with the Lister and Patcher interfaces so tests can
// substitute fakes.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Lister produces the raw patch listing for a bundle.
type Lister interface {
	// ListPatches returns the engine's human-readable patch listing.
	ListPatches(ctx context.Context) (string, error)
}

// Patcher applies patches to an APK using a prebuilt argument list.
type Patcher interface {
	// Patch runs the engine with args appended to the patch command.
	Patch(ctx context.Context, args []string) error
}

// Java runs the engine CLI jar through a java binary.
type Java struct {
	// JavaBin is the java executable, usually just "java".
	JavaBin string
	// Opts are JVM options passed before -jar.
	Opts []string
	// CLIJar is the patch engine CLI jar.
	CLIJar string
	// BundleJar is the patch bundle the engine loads.
	BundleJar string
}

// NewJava builds a Java engine. An empty javaBin falls back to "java".
func NewJava(javaBin string, opts []string, cliJar, bundleJar string) *Java {
	if javaBin == "" {
		javaBin = "java"
	}
	return &Java{JavaBin: javaBin, Opts: opts, CLIJar: cliJar, BundleJar: bundleJar}
}

func (j *Java) command(ctx context.Context, args ...string) *exec.Cmd {
	full := append(append([]string{}, j.Opts...), "-jar", j.CLIJar)
	full = append(full, args...)
	return exec.CommandContext(ctx, j.JavaBin, full...)
}

// ListPatches shells out to the engine's list-patches command and
// returns stdout verbatim.
func (j *Java) ListPatches(ctx context.Context) (string, error) {
	cmd := j.command(ctx, "list-patches", "--with-packages", "--with-versions", "--with-options", j.BundleJar)
	slog.Debug("running", "cmd", strings.Join(cmd.Args, " "))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("list-patches: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// PatchCommandLine returns the full argv a Patch call would execute,
// for display before running it.
func (j *Java) PatchCommandLine(args []string) []string {
	cmdArgs := append([]string{"patch", "-p", j.BundleJar}, args...)
	return j.command(context.Background(), cmdArgs...).Args
}

// Patch runs the engine's patch command with the supplied arguments.
// Output streams to the terminal so the operator sees engine progress.
func (j *Java) Patch(ctx context.Context, args []string) error {
	cmdArgs := append([]string{"patch", "-p", j.BundleJar}, args...)
	cmd := j.command(ctx, cmdArgs...)
	slog.Info("running", "cmd", strings.Join(cmd.Args, " "))

	cmd.Stdout = os.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("patch: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Merger combines split APK archives into a single APK.
type Merger interface {
	Merge(ctx context.Context, splitDir, output string) error
}

// APKEditor merges splits with the APKEditor jar.
type APKEditor struct {
	JavaBin string
	Jar     string
}

// Merge runs APKEditor's merge command over a directory of splits.
func (a *APKEditor) Merge(ctx context.Context, splitDir, output string) error {
	javaBin := a.JavaBin
	if javaBin == "" {
		javaBin = "java"
	}
	cmd := exec.CommandContext(ctx, javaBin, "-jar", a.Jar, "m", "-i", splitDir, "-o", output)
	slog.Debug("running", "cmd", strings.Join(cmd.Args, " "))

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("merging splits: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
