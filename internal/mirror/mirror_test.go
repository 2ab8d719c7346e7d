package mirror

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return doc
}

func TestParseSearch(t *testing.T) {
	html := `
<div class="appRow">
  <h5 class="appRowTitle">YouTube 19.16.39</h5>
  <a class="downloadLink" href="/apk/google-inc/youtube/youtube-19-16-39-release/">x</a>
</div>
<div class="appRow">
  <h5 class="appRowTitle"></h5>
  <a class="downloadLink" href="/apk/broken/">x</a>
</div>
<div class="appRow">
  <h5 class="appRowTitle">YouTube Music 6.51.53</h5>
  <a class="downloadLink" href="/apk/google-inc/youtube-music/">x</a>
</div>`

	apps := parseSearch(mustDoc(t, html), "https://mirror.test")
	if len(apps) != 2 {
		t.Fatalf("got %d apps, want 2 (empty title skipped)", len(apps))
	}
	if apps[0].Name != "YouTube 19.16.39" {
		t.Errorf("first app = %q", apps[0].Name)
	}
	if apps[0].Link != "https://mirror.test/apk/google-inc/youtube/youtube-19-16-39-release/" {
		t.Errorf("first link = %q", apps[0].Link)
	}
	if apps[1].Name != "YouTube Music 6.51.53" {
		t.Errorf("second app = %q", apps[1].Name)
	}
}

func TestParseSearchEmpty(t *testing.T) {
	if apps := parseSearch(mustDoc(t, "<html><body><p>no results</p></body></html>"), "https://mirror.test"); apps != nil {
		t.Fatalf("got %v, want nil", apps)
	}
}

func TestParseDetails(t *testing.T) {
	html := `
<div class="table-row headerFont">
  <div class="table-cell">Version</div>
  <div class="table-cell">Arch</div>
  <div class="table-cell">Android</div>
  <div class="table-cell">DPI</div>
</div>
<div class="table-row headerFont">
  <div class="table-cell"><a class="accent_color" href="/apk/google-inc/youtube/variant-1/">19.16.39</a></div>
  <div class="table-cell">arm64-v8a</div>
  <div class="table-cell">Android 8.0+</div>
  <div class="table-cell">nodpi</div>
</div>`

	info := parseDetails(mustDoc(t, html), "https://mirror.test")
	if info == nil {
		t.Fatal("got nil info")
	}
	if info.Architecture != "arm64-v8a" {
		t.Errorf("Architecture = %q", info.Architecture)
	}
	if info.AndroidVersion != "Android 8.0+" {
		t.Errorf("AndroidVersion = %q", info.AndroidVersion)
	}
	if info.DPI != "nodpi" {
		t.Errorf("DPI = %q", info.DPI)
	}
	if info.DownloadPage != "https://mirror.test/apk/google-inc/youtube/variant-1/" {
		t.Errorf("DownloadPage = %q", info.DownloadPage)
	}
}

func TestParseDetailsHeaderOnly(t *testing.T) {
	html := `<div class="table-row"><div class="table-cell">Version</div></div>`
	if info := parseDetails(mustDoc(t, html), "https://mirror.test"); info != nil {
		t.Fatalf("got %+v, want nil", info)
	}
}

func TestParseDownloadButton(t *testing.T) {
	html := `<a class="downloadButton" href="/apk/google-inc/youtube/download/123/">Download APK</a>`
	if got := parseDownloadButton(mustDoc(t, html)); got != "/apk/google-inc/youtube/download/123/" {
		t.Errorf("got %q", got)
	}
	if got := parseDownloadButton(mustDoc(t, "<p>nothing</p>")); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestParseDirectLink(t *testing.T) {
	html := `
<a rel="nofollow" href="/other/page/">unrelated</a>
<a rel="nofollow" href="/wp-content/themes/APKMirror/download.php?id=123&key=abc">here</a>`
	got := parseDirectLink(mustDoc(t, html))
	if got != "/wp-content/themes/APKMirror/download.php?id=123&key=abc" {
		t.Errorf("got %q", got)
	}
}
