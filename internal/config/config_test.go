package config

import "testing"

func TestValidateForbidsRav1eCRF(t *testing.T) {
	cfg := New("in.mkv", "out")
	cfg.Encoder = EncoderRav1e
	cfg.Mode = ModeCRF
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected rav1e+crf to be rejected")
	}
}

func TestValidateTable(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(c *Config) {}, false},
		{"empty source", func(c *Config) { c.Source = "" }, true},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, true},
		{"rav1e crf forbidden", func(c *Config) { c.Encoder = EncoderRav1e; c.Mode = ModeCRF }, true},
		{"rav1e qp allowed", func(c *Config) { c.Encoder = EncoderRav1e; c.Mode = ModeQP }, false},
		{"negative workers", func(c *Config) { c.Workers = -1 }, true},
		{"percentile too high", func(c *Config) { c.Percentile = 1.5 }, true},
		{"percentile too low", func(c *Config) { c.Percentile = -0.1 }, true},
		{"percentile boundary 0", func(c *Config) { c.Percentile = 0 }, false},
		{"percentile boundary 1", func(c *Config) { c.Percentile = 1 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New("in.mkv", "out")
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestEncodeIdentifierQualityFormatting(t *testing.T) {
	cfg := New("in.mkv", "out")
	cfg.Encoder = EncoderX265
	cfg.Preset = "medium"
	cfg.Mode = ModeCRF
	cfg.Quality = 27.25

	id := cfg.EncodeIdentifier(true, []string{"medium"})
	if want := "x265-medium-crf-27.25"; id[:len(want)] != want {
		t.Fatalf("expected identifier to start with %q, got %q", want, id)
	}
}

func TestEncodeIdentifierIntegerQuality(t *testing.T) {
	cfg := New("in.mkv", "out")
	cfg.Encoder = EncoderX264
	cfg.Preset = "ultrafast"
	cfg.Mode = ModeQP
	cfg.Quality = 24

	id := cfg.EncodeIdentifier(true, []string{"ultrafast"})
	if want := "x264-ultrafast-qp-024"; id[:len(want)] != want {
		t.Fatalf("expected identifier to start with %q, got %q", want, id)
	}
}

func TestEncodeIdentifierWithoutQualityOmitsDiscriminator(t *testing.T) {
	cfg := New("in.mkv", "out")
	cfg.Encoder = EncoderX264
	cfg.Preset = "ultrafast"
	cfg.Mode = ModeQP
	cfg.Quality = 24

	hash := cfg.EncodeArgumentsHash([]string{"ultrafast"})
	want := "x264-ultrafast-qp-unconstrained-" + hash[:16]
	if id := cfg.EncodeIdentifier(false, []string{"ultrafast"}); id != want {
		t.Fatalf("expected %q, got %q", want, id)
	}
}

func TestEncodeIdentifierStableForSameInputs(t *testing.T) {
	cfg := New("in.mkv", "out")
	a := cfg.EncodeIdentifier(true, []string{"ultrafast"})
	b := cfg.EncodeIdentifier(true, []string{"ultrafast"})
	if a != b {
		t.Fatalf("expected identifier to be deterministic: %q != %q", a, b)
	}
}
