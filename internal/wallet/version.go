package wallet

import (
	"strings"

	"golang.org/x/mod/semver"
)

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// OutOfDate reports whether version is older than min. Without a minimum
// every version is accepted; an unparseable version never satisfies one.
func OutOfDate(version, min string) bool {
	m := canonical(min)
	if m == "" || !semver.IsValid(m) {
		return false
	}
	v := canonical(version)
	if !semver.IsValid(v) {
		return true
	}
	return semver.Compare(v, m) < 0
}
