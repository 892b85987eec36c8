package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bcc.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseLang(t *testing.T) {
	tests := []struct {
		name    string
		want    Lang
		wantErr bool
	}{
		{"bcs", LangBCS, false},
		{"ACS", LangACS, false},
		{" acs95 ", LangACS95, false},
		{"c", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLang(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLang(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLang(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestLangFromPath(t *testing.T) {
	tests := map[string]Lang{
		"a.bcs":     LangBCS,
		"dir/B.BCS": LangBCS,
		"a.acs":     LangACS,
		"noext":     LangACS,
	}
	for path, want := range tests {
		if got := LangFromPath(path); got != want {
			t.Errorf("LangFromPath(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "lang: acs95\n")
	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := Default()
	want.Lang = LangACS95
	if opts != want {
		t.Errorf("Load() = %+v, want %+v", opts, want)
	}
}

func TestLoadAllFields(t *testing.T) {
	path := writeConfig(t, `
lang: acs
write_asserts: false
assert_prefix: check
shared_array: 3
tick_limit: 500
`)
	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := Options{Lang: LangACS, WriteAsserts: false, AssertPrefix: "check", SharedArrayIndex: 3, TickLimit: 500}
	if opts != want {
		t.Errorf("Load() = %+v, want %+v", opts, want)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown language", "lang: cobol\n", "unknown language"},
		{"bad tick limit", "tick_limit: 0\n", "tick_limit must be positive"},
		{"not yaml", "lang: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}
