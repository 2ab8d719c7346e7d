package patch

import (
	"strings"
	"testing"
)

const sampleListing = `Index: 0
Name: Remove ads
Description: Removes all in-app
 advertisements from supported screens.
Enabled: true
Compatible packages:
 Package: com.google.android.youtube
 Compatible versions:
  19.16.39
  19.25.37
Options:
 Key: size
 Title: Banner size
 Key: format
 Default: png
 Type: String
 Possible values:
  png
  webp

Index: 1
Name: Custom branding
Enabled: false
Packages: com.google.android.youtube, com.google.android.apps.youtube.music

Index: 2
Name: Debug mode
Description: Enables verbose logging.
Enabled: false
`

func TestSplitBlocksCountAndReconstruction(t *testing.T) {
	blocks := SplitBlocks(sampleListing)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if got := strings.Join(blocks, ""); got != sampleListing {
		t.Errorf("concatenated blocks do not reconstruct the input:\n%q", got)
	}
	for i, b := range blocks {
		if strings.TrimSpace(b) == "" {
			t.Errorf("block %d is blank", i)
		}
	}
}

func TestSplitBlocksNoDelimiter(t *testing.T) {
	text := "Name: Lone patch\nEnabled: true\n"
	blocks := SplitBlocks(text)
	if len(blocks) != 1 {
		t.Fatalf("expected single degenerate block, got %d", len(blocks))
	}
	if blocks[0] != text {
		t.Errorf("degenerate block should be the whole text")
	}
}

func TestSplitBlocksEmptyInput(t *testing.T) {
	if blocks := SplitBlocks("   \n\n\t"); blocks != nil {
		t.Errorf("whitespace-only input should yield no blocks, got %v", blocks)
	}
}

func TestParseBlockFields(t *testing.T) {
	recs := Parse(sampleListing)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	r := recs[0]
	if r.Index == nil || *r.Index != 0 {
		t.Errorf("index: got %v", r.Index)
	}
	if r.Name != "Remove ads" {
		t.Errorf("name: got %q", r.Name)
	}
	if r.Enabled == nil || !*r.Enabled {
		t.Errorf("enabled: got %v", r.Enabled)
	}
	if !strings.HasPrefix(r.Description, "Removes all in-app") ||
		!strings.Contains(r.Description, "advertisements") {
		t.Errorf("multi-line description not captured: %q", r.Description)
	}
	if len(r.Packages) != 1 || r.Packages[0] != "com.google.android.youtube" {
		t.Errorf("packages: got %v", r.Packages)
	}
	vers := r.CompatibleVersions["com.google.android.youtube"]
	if len(vers) != 2 || vers[0] != "19.16.39" || vers[1] != "19.25.37" {
		t.Errorf("versions: got %v", vers)
	}
	if r.Universal {
		t.Error("record with packages must not be universal")
	}
}

func TestParseBlockOptionFlush(t *testing.T) {
	recs := Parse(sampleListing)
	opts := recs[0].Options
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d: %+v", len(opts), opts)
	}

	size, format := opts[0], opts[1]
	if size.Key != "size" {
		t.Errorf("first option key: got %q", size.Key)
	}
	if size.Default != nil {
		t.Errorf("size must have no default, got %q", *size.Default)
	}
	if size.Title != "Banner size" {
		t.Errorf("size title: got %q", size.Title)
	}
	if format.Key != "format" {
		t.Errorf("second option key: got %q", format.Key)
	}
	if format.Default == nil || *format.Default != "png" {
		t.Errorf("format default: got %v", format.Default)
	}
	if format.Type != "String" {
		t.Errorf("format type: got %q", format.Type)
	}
	if len(format.PossibleValues) != 2 || format.PossibleValues[0] != "png" || format.PossibleValues[1] != "webp" {
		t.Errorf("format possible values: got %v", format.PossibleValues)
	}
}

func TestParseBlockCommaSeparatedPackages(t *testing.T) {
	recs := Parse(sampleListing)
	r := recs[1]
	want := []string{"com.google.android.youtube", "com.google.android.apps.youtube.music"}
	if len(r.Packages) != len(want) {
		t.Fatalf("packages: got %v", r.Packages)
	}
	for i, p := range want {
		if r.Packages[i] != p {
			t.Errorf("package %d: got %q, want %q", i, r.Packages[i], p)
		}
	}
	for _, p := range want {
		if _, ok := r.CompatibleVersions[p]; !ok {
			t.Errorf("missing version entry for %q", p)
		}
	}
}

func TestUniversalInvariant(t *testing.T) {
	tests := []struct {
		name  string
		block string
		pkgs  int
	}{
		{"no packages", "Index: 5\nName: Universal tweak\n", 0},
		{"one package", "Index: 6\nName: Scoped\nPackages: com.example.app\n", 1},
		{"three packages", "Index: 7\nName: Broad\nPackages: com.a.one, com.b.two, com.c.three\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseBlock(tt.block)
			if len(r.Packages) != tt.pkgs {
				t.Fatalf("packages: got %v, want %d", r.Packages, tt.pkgs)
			}
			if r.Universal != (len(r.Packages) == 0) {
				t.Errorf("universal invariant violated: universal=%v packages=%v", r.Universal, r.Packages)
			}
		})
	}
}

func TestParseBlockDuplicatePackagesFirstSeenWins(t *testing.T) {
	block := "Index: 3\nName: Dup\nPackages: com.example.app, com.example.app\nCompatible packages:\n Package: com.example.app\n Compatible versions:\n  1.0.0\n"
	r := ParseBlock(block)
	if len(r.Packages) != 1 {
		t.Fatalf("expected deduplicated package list, got %v", r.Packages)
	}
	if vers := r.CompatibleVersions["com.example.app"]; len(vers) != 1 || vers[0] != "1.0.0" {
		t.Errorf("versions should attach to the deduplicated entry, got %v", vers)
	}
}

func TestParseBlockMalformedIsNotAnError(t *testing.T) {
	r := ParseBlock("this block has no recognized headers at all\njust prose\n")
	if r == nil {
		t.Fatal("malformed blocks must still yield a record")
	}
	if r.Index != nil || r.Name != "" || r.Enabled != nil || len(r.Options) != 0 {
		t.Errorf("unexpected fields recovered: %+v", r)
	}
	if !r.Universal {
		t.Error("record without packages must be universal")
	}
}

func TestParseBlockHeuristicOptions(t *testing.T) {
	block := "Index: 9\nName: Legacy\nOptions:\n - theme (String) default=dark\n - verbosity\n - theme (String) default=light\n"
	r := ParseBlock(block)
	if len(r.Options) != 2 {
		t.Fatalf("expected 2 heuristic options, got %+v", r.Options)
	}
	theme := r.Options[0]
	if theme.Key != "theme" || theme.Type != "String" {
		t.Errorf("theme: got %+v", theme)
	}
	if theme.Default == nil || *theme.Default != "dark" {
		t.Errorf("first occurrence must win: got %v", theme.Default)
	}
	if r.Options[1].Key != "verbosity" || r.Options[1].Default != nil {
		t.Errorf("verbosity: got %+v", r.Options[1])
	}
}

func TestParseBlockStructuredBeatsHeuristic(t *testing.T) {
	block := "Index: 4\nName: Mixed\nOptions:\n Key: real\n Default: yes\n"
	r := ParseBlock(block)
	if len(r.Options) != 1 || r.Options[0].Key != "real" {
		t.Fatalf("structured path should win: %+v", r.Options)
	}
}
