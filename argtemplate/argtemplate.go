// Package argtemplate substitutes {in} and {in0..N} placeholders in a task's
// argument vector with input basenames (spec component C3). It is a pure
// function with no side effects.
package argtemplate

import (
	"regexp"
	"strconv"
)

var indexedPlaceholder = regexp.MustCompile(`^\{in(\d+)\}$`)

// Substitute returns args with each "{in}"/"{inN}" string element replaced
// by the corresponding basename. Non-string-placeholder elements pass
// through unchanged:
//
//   - "{in}" becomes basenames[0] only when exactly one basename is present;
//     otherwise it is left literal.
//   - "{inN}" becomes basenames[N] when N is in range; otherwise literal.
func Substitute(args []string, basenames []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = substituteOne(arg, basenames)
	}
	return out
}

func substituteOne(arg string, basenames []string) string {
	if arg == "{in}" {
		if len(basenames) == 1 {
			return basenames[0]
		}
		return arg
	}

	if m := indexedPlaceholder.FindStringSubmatch(arg); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 || n >= len(basenames) {
			return arg
		}
		return basenames[n]
	}

	return arg
}
