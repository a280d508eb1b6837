package roster

import "strings"

// TruncateAtStop cuts block right before the earliest occurrence of any
// marker. The block is returned unchanged if no marker occurs.
func TruncateAtStop(block string, markers []string) string {
	cut := -1
	for _, m := range markers {
		if m == "" {
			continue
		}
		if i := strings.Index(block, m); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut < 0 {
		return block
	}
	return block[:cut]
}

func containsAny(s string, markers []string) (string, bool) {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return m, true
		}
	}
	return "", false
}
