package meme

import (
	"fmt"
	"strconv"
	"strings"
)

// Releases up to and including 0.2.0 speak the multipart protocol.
var legacyCeiling = []int{0, 2, 0}

// legacyVersion stands in for services that cannot report their version.
const legacyVersion = "0.2.0"

// parseVersion reads the numeric part of a dotted version. Pre-release
// suffixes ("0.2.0rc1", "v1.0.0-beta") are ignored.
func parseVersion(s string) ([]int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}

	var out []int
	for _, part := range strings.Split(s, ".") {
		end := 0
		for end < len(part) && part[end] >= '0' && part[end] <= '9' {
			end++
		}
		if end == 0 {
			return nil, fmt.Errorf("invalid version %q", s)
		}
		n, err := strconv.Atoi(part[:end])
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", s, err)
		}
		out = append(out, n)
		if end < len(part) {
			break
		}
	}
	return out, nil
}

func compareVersions(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}
