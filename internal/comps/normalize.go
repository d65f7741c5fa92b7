package comps

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

var legalSuffixes = []string{
	"inc", "inc.", "corp", "corp.", "corporation", "co", "co.",
	"ltd", "ltd.", "limited", "plc", "llc", "lp", "l.p.",
	"holdings", "group", "sa", "s.a.", "ag", "nv", "n.v.",
}

// NormalizeName lowercases a company name, strips commas and trailing legal
// suffixes, and collapses whitespace. Two names normalizing to the same
// string are treated as the same company for dedup purposes.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, ",", " ")
	fields := strings.Fields(s)
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		trimmed := false
		for _, suf := range legalSuffixes {
			if last == suf {
				fields = fields[:len(fields)-1]
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	return strings.Join(fields, " ")
}

// TargetKey derives the cache key for a target: equal inputs always produce
// equal keys, so repeated searches for the same company hit the store.
func TargetKey(in TargetInput) string {
	h := sha256.New()
	h.Write([]byte(NormalizeName(in.Name)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(in.Description))))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
