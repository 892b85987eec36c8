package pcode

// StringTable interns the strings of one output program. Index 0 is the
// empty string.
type StringTable struct {
	list  []string
	index map[string]int32
}

// NewStringTable creates a table holding only the empty string
func NewStringTable() *StringTable {
	return &StringTable{
		list:  []string{""},
		index: map[string]int32{"": 0},
	}
}

// Intern returns the index of s, adding it if needed
func (t *StringTable) Intern(s string) int32 {
	if idx, ok := t.index[s]; ok {
		return idx
	}
	idx := int32(len(t.list))
	t.list = append(t.list, s)
	t.index[s] = idx
	return idx
}

// Lookup returns the string at idx
func (t *StringTable) Lookup(idx int32) (string, bool) {
	if idx < 0 || int(idx) >= len(t.list) {
		return "", false
	}
	return t.list[idx], true
}

// Len returns the number of strings
func (t *StringTable) Len() int {
	return len(t.list)
}

// Strings returns a copy of the table contents
func (t *StringTable) Strings() []string {
	return append([]string(nil), t.list...)
}
