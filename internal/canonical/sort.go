package canonical

import (
	"slices"
	"unicode/utf16"
)

// SortedKeys returns map keys in RFC 8785 canonical order.
//
// Ordering is by UTF-16 code units, not UTF-8 bytes. The two differ for
// strings containing supplementary-plane characters, so sort.Strings
// would produce a different (non-canonical) order.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units. utf16.Encode is
// used for correct surrogate pair handling.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
