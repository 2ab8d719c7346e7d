// Package toolchain checks the host environment the external patch
// engine needs: a supported Java runtime and the helper binaries that
// improve package detection.
package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Supported Java versions for the patch engine.
const (
	JavaMinVersion = 17
	JavaMaxVersion = 24 // inclusive
)

// Severity classifies environment issues.
type Severity int

const (
	SeverityError   Severity = iota // Blocks patching
	SeverityWarning                 // Reported but not fatal
)

// Issue represents a single environment problem.
type Issue struct {
	Severity Severity
	Check    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s", sev, i.Check, i.Message)
}

// Result holds all environment issues.
type Result struct {
	Issues      []Issue
	JavaVersion int // 0 when Java was not found
}

// HasErrors returns true if any issue blocks patching.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

var javaVersionRe = regexp.MustCompile(`version "([^"]+)"`)

// ParseJavaVersion extracts the major Java version from `java -version`
// output. Both the legacy "1.8.0_341" and the modern "17.0.5" formats
// are understood.
func ParseJavaVersion(output string) (int, error) {
	m := javaVersionRe.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("no version string in output: %q", strings.TrimSpace(output))
	}

	parts := strings.Split(m[1], ".")
	if parts[0] == "1" {
		// Legacy format: 1.x.y — major is x.
		if len(parts) < 2 {
			return 0, fmt.Errorf("malformed legacy version %q", m[1])
		}
		major, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("parsing legacy version %q: %w", m[1], err)
		}
		return major, nil
	}

	digits := parts[0]
	if i := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		digits = digits[:i]
	}
	major, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", m[1], err)
	}
	return major, nil
}

// CheckJavaVersion validates a parsed major version against the
// supported range.
func CheckJavaVersion(major int) []Issue {
	if major < JavaMinVersion || major > JavaMaxVersion {
		return []Issue{{
			Severity: SeverityError,
			Check:    "java",
			Message: fmt.Sprintf("unsupported Java version %d: need >= %d and <= %d",
				major, JavaMinVersion, JavaMaxVersion),
		}}
	}
	return nil
}

// Doctor probes the host environment and returns everything wrong with
// it. Only a missing or unsupported Java is fatal; missing helpers
// degrade package detection and are reported as warnings.
func Doctor(ctx context.Context) *Result {
	r := &Result{}

	javaPath, err := exec.LookPath("java")
	if err != nil {
		r.Issues = append(r.Issues, Issue{
			Severity: SeverityError,
			Check:    "java",
			Message:  "java not found in PATH; install OpenJDK 17-24",
		})
		return r
	}

	// -version writes to stderr on most JDKs.
	out, err := exec.CommandContext(ctx, javaPath, "-version").CombinedOutput()
	if err != nil {
		r.Issues = append(r.Issues, Issue{
			Severity: SeverityError,
			Check:    "java",
			Message:  fmt.Sprintf("running java -version: %v", err),
		})
		return r
	}

	major, err := ParseJavaVersion(string(out))
	if err != nil {
		r.Issues = append(r.Issues, Issue{
			Severity: SeverityError,
			Check:    "java",
			Message:  err.Error(),
		})
		return r
	}
	r.JavaVersion = major
	r.Issues = append(r.Issues, CheckJavaVersion(major)...)

	if _, err := exec.LookPath("aapt"); err != nil {
		r.Issues = append(r.Issues, Issue{
			Severity: SeverityWarning,
			Check:    "aapt",
			Message:  "aapt not found; falling back to manifest decoding for package detection",
		})
	}

	return r
}
