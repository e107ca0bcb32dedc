package collector

import "strings"

// Classification is the outcome of Classify.
type Classification int

const (
	Valid Classification = iota
	Ignored
)

func (c Classification) String() string {
	if c == Ignored {
		return "ignored"
	}
	return "valid"
}

// swapSuffixes are editor swap files that must never be collected.
var swapSuffixes = []string{".swp", ".swo", ".swx"}

// Classify decides from a bare filename whether a file counts toward a batch.
// Hidden files and editor swap files are ignored.
func Classify(name string) Classification {
	if strings.HasPrefix(name, ".") {
		return Ignored
	}
	for _, suffix := range swapSuffixes {
		if strings.HasSuffix(name, suffix) {
			return Ignored
		}
	}
	return Valid
}
