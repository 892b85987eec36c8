package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lang is the source dialect being compiled
type Lang int

const (
	LangBCS   Lang = iota // extended dialect, the default
	LangACS               // classic dialect
	LangACS95             // most restrictive legacy dialect
)

var langNames = map[Lang]string{
	LangBCS:   "bcs",
	LangACS:   "acs",
	LangACS95: "acs95",
}

func (l Lang) String() string {
	if name, ok := langNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLang maps a dialect name to its Lang, ignoring case
func ParseLang(name string) (Lang, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for lang, n := range langNames {
		if n == name {
			return lang, nil
		}
	}
	return 0, fmt.Errorf("unknown language %q (want bcs, acs or acs95)", name)
}

// LangFromPath picks the dialect from a source file extension: .bcs is the
// extended dialect, everything else the classic one.
func LangFromPath(path string) Lang {
	if strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), "bcs") {
		return LangBCS
	}
	return LangACS
}

// UnmarshalYAML accepts dialect names in config files
func (l *Lang) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	lang, err := ParseLang(name)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*l = lang
	return nil
}

// Options controls code generation
type Options struct {
	Lang             Lang   `yaml:"lang"`
	WriteAsserts     bool   `yaml:"write_asserts"`
	AssertPrefix     string `yaml:"assert_prefix"`
	SharedArrayIndex int    `yaml:"shared_array"`
	TickLimit        int64  `yaml:"tick_limit"`
}

// Default returns the default options
func Default() Options {
	return Options{
		Lang:             LangBCS,
		WriteAsserts:     true,
		AssertPrefix:     "assertion failure",
		SharedArrayIndex: 0,
		TickLimit:        100000,
	}
}

// Load reads options from a YAML file. Fields missing from the file keep
// their default values.
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse config %s: %w", path, err)
	}
	if opts.TickLimit <= 0 {
		return opts, fmt.Errorf("parse config %s: tick_limit must be positive", path)
	}
	return opts, nil
}
