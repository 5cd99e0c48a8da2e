package probe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "metadata.json")

	want := &Metadata{
		FrameCount: 1500,
		Duration:   60.5,
		CropFilter: "crop=1920:800:0:140",
		Width:      1920,
		Height:     1080,
		IsHDR:      true,
	}

	data, err := json.MarshalIndent(want, "", "  ")
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}

	got, err := loadCache(cachePath)
	if err != nil {
		t.Fatalf("loadCache: %v", err)
	}
	if *got != *want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestLoadCacheMissingReturnsError(t *testing.T) {
	dir := t.TempDir()
	if _, err := loadCache(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected an error loading a nonexistent cache file")
	}
}

func TestIsValidCropFormat(t *testing.T) {
	cases := []struct {
		crop string
		want bool
	}{
		{"1920:800:0:140", true},
		{"1920:800:0", false},
		{"1920:800:0:abc", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isValidCropFormat(tc.crop); got != tc.want {
			t.Fatalf("isValidCropFormat(%q) = %v, want %v", tc.crop, got, tc.want)
		}
	}
}

func TestIsEffectiveCrop(t *testing.T) {
	if isEffectiveCrop("1920:1080:0:0", 1920, 1080) {
		t.Fatalf("a crop matching the full frame should not be effective")
	}
	if !isEffectiveCrop("1920:800:0:140", 1920, 1080) {
		t.Fatalf("a crop smaller than the full frame should be effective")
	}
}
