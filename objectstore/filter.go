package objectstore

import "github.com/bmatcuk/doublestar/v4"

// matches reports whether key passes the include/exclude glob filters: it
// must match at least one include pattern (when any are given) and must
// not match any exclude pattern.
func matches(key string, include, exclude []string) bool {
	if len(include) > 0 {
		ok := false
		for _, pattern := range include {
			if globMatch(pattern, key) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	for _, pattern := range exclude {
		if globMatch(pattern, key) {
			return false
		}
	}

	return true
}

// globMatch reports whether key matches pattern. A malformed pattern never
// matches, rather than erroring the whole listing.
func globMatch(pattern, key string) bool {
	ok, err := doublestar.Match(pattern, key)
	return err == nil && ok
}
