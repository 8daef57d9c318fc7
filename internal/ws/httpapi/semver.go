package httpapi

import (
	"strconv"
	"strings"
)

// semver is the major.minor.patch triple parsed out of an X-zkPass-Client
// header; prerelease/build metadata (after '-' or '+') is accepted but not
// compared, since the gate only cares about major.minor compatibility.
type semver struct {
	major, minor, patch int
}

// parseSemver accepts a bare "MAJOR.MINOR.PATCH" with an optional
// "-prerelease"/"+build" suffix. No example repo in this module's corpus
// carries a semver parsing library, so this hand-rolled parser is the
// stdlib fallback for that one narrow concern.
func parseSemver(v string) (semver, bool) {
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}

	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return semver{}, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return semver{}, false
		}
		nums[i] = n
	}

	return semver{major: nums[0], minor: nums[1], patch: nums[2]}, true
}
