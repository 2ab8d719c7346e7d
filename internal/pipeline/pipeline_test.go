package pipeline

import (
	"context"
	"reflect"
	"testing"

	"github.com/everstacklabs/apkforge/internal/config"
	"github.com/everstacklabs/apkforge/internal/patch"
	"github.com/everstacklabs/apkforge/internal/prompt"
)

const fakeListing = `Index: 0
Name: Remove ads
Enabled: true
Compatible packages:
Package: com.example.app
Index: 1
Name: Debug mode
Enabled: false
Options:
Key: tag
Default: dbg
Index: 2
Name: Other app only
Compatible packages:
Package: com.other.app
`

type fakeLister struct{ listing string }

func (f *fakeLister) ListPatches(ctx context.Context) (string, error) {
	return f.listing, nil
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := &config.Config{}
	cfg.Patching.Exclusive = true
	p := New(cfg)
	p.Select = func(records []*patch.Record) ([]patch.Choice, error) {
		var choices []patch.Choice
		for _, r := range records {
			if r.HasIndex() {
				choices = append(choices, patch.IndexChoice(*r.Index))
			}
		}
		return choices, nil
	}
	p.Ask = func(r *patch.Record, opt patch.Option) (patch.Answer, error) {
		return patch.Answer{Skip: true}, nil
	}
	return p
}

func TestCatalogFiltersToPackage(t *testing.T) {
	p := testPipeline(t)

	records, err := p.Catalog(context.Background(), &fakeLister{listing: fakeListing}, "com.example.app")
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Name != "Remove ads" {
		t.Errorf("record = %q", records[0].Name)
	}
}

func TestCatalogEmptyTargetKeepsAll(t *testing.T) {
	p := testPipeline(t)

	records, err := p.Catalog(context.Background(), &fakeLister{listing: fakeListing}, "")
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
}

func TestResolveSelectionsProducesArgs(t *testing.T) {
	p := testPipeline(t)

	records := patch.Parse(fakeListing)
	args, code, err := p.resolveSelections(records, nil, "out.apk", "in.apk")
	if err != nil {
		t.Fatalf("resolveSelections: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("code = %d", code)
	}
	want := []string{"--exclusive", "--ei", "0", "--ei", "1", "--ei", "2", "-o", "out.apk", "in.apk"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestResolveSelectionsEmptyCatalog(t *testing.T) {
	p := testPipeline(t)

	_, code, err := p.resolveSelections(nil, nil, "out.apk", "in.apk")
	if code != ExitNoPatches {
		t.Errorf("code = %d, want %d", code, ExitNoPatches)
	}
	if err == nil {
		t.Error("want an error describing the empty catalog")
	}
}

func TestResolveSelectionsCancelled(t *testing.T) {
	p := testPipeline(t)
	p.Select = func([]*patch.Record) ([]patch.Choice, error) {
		return nil, prompt.ErrCancelled
	}

	_, code, _ := p.resolveSelections(patch.Parse(fakeListing), nil, "out.apk", "in.apk")
	if code != ExitCancelled {
		t.Errorf("code = %d, want %d", code, ExitCancelled)
	}
}

func TestResolveSelectionsNothingPicked(t *testing.T) {
	p := testPipeline(t)
	p.Select = func([]*patch.Record) ([]patch.Choice, error) {
		return nil, nil
	}

	_, code, _ := p.resolveSelections(patch.Parse(fakeListing), nil, "out.apk", "in.apk")
	if code != ExitCancelled {
		t.Errorf("code = %d, want %d", code, ExitCancelled)
	}
}

func TestQuoteCommand(t *testing.T) {
	argv := []string{"java", "-jar", "cli.jar", "-e", "Remove ads", "-Otitle=My App", "plain"}
	want := `java -jar cli.jar -e 'Remove ads' '-Otitle=My App' plain`
	if got := QuoteCommand(argv); got != want {
		t.Errorf("QuoteCommand = %q, want %q", got, want)
	}
}
