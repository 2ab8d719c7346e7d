// Package apkfile locates target packages on disk, detects their package
// id, and prepares multi-split archives for merging.
package apkfile

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shogo82148/androidbinary/apk"
)

// Extensions apkforge treats as installable or mergeable packages.
var packageExts = map[string]bool{
	".apk":  true,
	".apkm": true,
	".xapk": true,
}

// Directories skipped during discovery.
var excludedDirs = map[string]bool{
	"output":       true,
	".git":         true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	"node_modules": true,
	".cache":       true,
	"build":        true,
	"dist":         true,
}

// Found is one discovered package file.
type Found struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Discover walks root for package files, newest first. Well-known build
// and cache directories are skipped.
func Discover(root string) ([]Found, error) {
	var found []Found

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !packageExts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		found = append(found, Found{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ModTime.After(found[j].ModTime) })
	return found, nil
}

// IsSplit reports whether path is a multi-split archive that needs
// merging before it can be patched.
func IsSplit(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".apkm" || ext == ".xapk"
}

// Info is the detected identity of a package file.
type Info struct {
	Package     string
	VersionName string
	VersionCode int64
}

var aaptPackageRe = regexp.MustCompile(`name='([^']+)'`)
var aaptVersionNameRe = regexp.MustCompile(`versionName='([^']+)'`)
var aaptVersionCodeRe = regexp.MustCompile(`versionCode='(\d+)'`)

// DetectPackage extracts the package id from an installable APK. aapt is
// preferred when present; otherwise the binary AndroidManifest is
// decoded directly.
func DetectPackage(ctx context.Context, path string) (*Info, error) {
	if aapt, err := exec.LookPath("aapt"); err == nil {
		if info, err := detectWithAapt(ctx, aapt, path); err == nil {
			return info, nil
		}
		// aapt chokes on some resource setups; the manifest decoder
		// below handles those.
	}
	return detectFromManifest(path)
}

func detectWithAapt(ctx context.Context, aapt, path string) (*Info, error) {
	out, err := exec.CommandContext(ctx, aapt, "dump", "badging", path).Output()
	if err != nil {
		return nil, fmt.Errorf("aapt dump badging: %w", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "package:") {
			continue
		}
		m := aaptPackageRe.FindStringSubmatch(line)
		if m == nil {
			break
		}
		info := &Info{Package: m[1]}
		if vm := aaptVersionNameRe.FindStringSubmatch(line); vm != nil {
			info.VersionName = vm[1]
		}
		if vm := aaptVersionCodeRe.FindStringSubmatch(line); vm != nil {
			fmt.Sscanf(vm[1], "%d", &info.VersionCode)
		}
		return info, nil
	}
	return nil, fmt.Errorf("no package line in aapt output for %s", path)
}

func detectFromManifest(path string) (*Info, error) {
	pkg, err := apk.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening APK %s: %w", path, err)
	}
	defer pkg.Close()

	manifest := pkg.Manifest()
	id, err := manifest.Package.String()
	if err != nil || id == "" {
		return nil, fmt.Errorf("decoding manifest of %s: no package id", path)
	}

	info := &Info{Package: id}
	if v, err := manifest.VersionName.String(); err == nil {
		info.VersionName = v
	}
	if v, err := manifest.VersionCode.Int32(); err == nil {
		info.VersionCode = int64(v)
	}
	return info, nil
}

// ExtractSplits unpacks the .apk entries of a split archive into destDir
// so the merge tool can stitch them into one installable package.
// Returns the number of extracted splits.
func ExtractSplits(archivePath, destDir string) (int, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("opening split archive %s: %w", archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating extract dir: %w", err)
	}

	count := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".apk") {
			continue
		}
		// Split archives are flat; strip any path component.
		dest := filepath.Join(destDir, filepath.Base(f.Name))
		if err := extractOne(f, dest); err != nil {
			return count, err
		}
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("no .apk entries in %s", archivePath)
	}
	return count, nil
}

func extractOne(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s in archive: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return nil
}
