package conformance

import (
	"gopkg.in/yaml.v3"

	"bcc/config"
)

// TestSuite represents a complete YAML test file
type TestSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Options     *Overrides `yaml:"options,omitempty"`
	Tests       []TestCase `yaml:"tests"`
}

// Overrides replaces individual code generation options
type Overrides struct {
	Lang         *config.Lang `yaml:"lang,omitempty"`
	WriteAsserts *bool        `yaml:"write_asserts,omitempty"`
	AssertPrefix *string      `yaml:"assert_prefix,omitempty"`
	SharedArray  *int         `yaml:"shared_array,omitempty"`
	TickLimit    *int64       `yaml:"tick_limit,omitempty"`
}

// Apply returns opts with the overrides set
func (o *Overrides) Apply(opts config.Options) config.Options {
	if o == nil {
		return opts
	}
	if o.Lang != nil {
		opts.Lang = *o.Lang
	}
	if o.WriteAsserts != nil {
		opts.WriteAsserts = *o.WriteAsserts
	}
	if o.AssertPrefix != nil {
		opts.AssertPrefix = *o.AssertPrefix
	}
	if o.SharedArray != nil {
		opts.SharedArrayIndex = *o.SharedArray
	}
	if o.TickLimit != nil {
		opts.TickLimit = *o.TickLimit
	}
	return opts
}

// SetupBlock seeds the machine before the first run
type SetupBlock struct {
	Args       []int32       `yaml:"args,omitempty"` // parameter values
	MapVars    map[int]int32 `yaml:"map_vars,omitempty"`
	WorldVars  map[int]int32 `yaml:"world_vars,omitempty"`
	GlobalVars map[int]int32 `yaml:"global_vars,omitempty"`
}

// TestCase represents a single test within a suite
type TestCase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Options     *Overrides  `yaml:"options,omitempty"`
	Kind        string      `yaml:"kind,omitempty"`   // script, function or nested
	Return      string      `yaml:"return,omitempty"` // return type
	Params      []string    `yaml:"params,omitempty"`
	Setup       *SetupBlock `yaml:"setup,omitempty"`
	Runs        int         `yaml:"runs,omitempty"` // runs to resume a suspended or restarted script
	Body        yaml.Node   `yaml:"body"`
	Expect      Expectation `yaml:"expect"`
}

// Expectation defines what a test checks. Every field that is set must
// hold.
type Expectation struct {
	Error string `yaml:"error,omitempty"` // substring of a lowering or runtime error

	// Lowering
	FrameSize *int           `yaml:"frame_size,omitempty"`
	Contains  []string       `yaml:"contains,omitempty"` // opcodes that must appear
	Excludes  []string       `yaml:"excludes,omitempty"` // opcodes that must not appear
	Counts    map[string]int `yaml:"counts,omitempty"`   // exact opcode counts
	Length    *int           `yaml:"length,omitempty"`   // instruction count

	// Execution
	Vars         map[string]int32   `yaml:"vars,omitempty"`   // final values by variable name
	Writes       map[string][]int32 `yaml:"writes,omitempty"` // every store into a local, in order
	Output       []string           `yaml:"output,omitempty"`
	Stack        *int               `yaml:"stack,omitempty"` // final stack depth
	State        string             `yaml:"state,omitempty"`
	Return       *int32             `yaml:"return,omitempty"`
	Translations []TranslationSpec  `yaml:"translations,omitempty"`
}

// TranslationSpec is an expected palette translation
type TranslationSpec struct {
	Number int32     `yaml:"number"`
	Ranges [][]int32 `yaml:"ranges"` // begin, end, then 2 or 6 values
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	if tc.Skip == nil {
		return false, ""
	}

	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
		return false, ""
	case string:
		return true, v
	default:
		return false, ""
	}
}

// compileOnly reports whether the test checks nothing that needs a run
func (e *Expectation) compileOnly() bool {
	return e.Vars == nil && e.Writes == nil && e.Output == nil && e.Stack == nil &&
		e.State == "" && e.Return == nil && e.Translations == nil
}
