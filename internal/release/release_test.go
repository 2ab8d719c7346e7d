package release

import "testing"

func TestPickAsset(t *testing.T) {
	assets := []Asset{
		{Name: "revanced-cli-5.0.1-all.jar", URL: "u1"},
		{Name: "checksums.txt", URL: "u2"},
		{Name: "patches-4.8.0.rvp", URL: "u3"},
		{Name: "other-tool.jar", URL: "u4"},
	}

	tests := []struct {
		name    string
		ext     string
		keyword string
		want    string
		ok      bool
	}{
		{"jar with cli keyword", ".jar", "cli", "revanced-cli-5.0.1-all.jar", true},
		{"jar keyword miss falls back to first", ".jar", "editor", "revanced-cli-5.0.1-all.jar", true},
		{"rvp bundle", ".rvp", "patch", "patches-4.8.0.rvp", true},
		{"case-insensitive extension", ".JAR", "other", "other-tool.jar", true},
		{"no match", ".apk", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickAsset(assets, tt.ext, tt.keyword)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && got.Name != tt.want {
				t.Errorf("got %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestPickAssetEmpty(t *testing.T) {
	if _, ok := PickAsset(nil, ".jar", "cli"); ok {
		t.Error("no assets should not match")
	}
}
