package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// FitReport is the raw diagnostic text of one PSF fitting attempt.
type FitReport struct {
	Text string
}

// rejectedStarRe matches the explicit rejection sentence the fitting routine
// prints for stars it refuses to use, e.g. "   2182 is not a good star.".
var rejectedStarRe = regexp.MustCompile(`^[ \t]*([0-9]+) is not a good star\.`)

// markerOffsets are the byte offsets at which the fitting routine places "?"
// or "*" quality markers on its per-star diagnostic lines. The offsets, and
// the ID field that ends 8 bytes before each marker, are fixed-width output
// of the legacy program and must not be changed.
var markerOffsets = [...]int{15, 32, 49, 66, 83}

const markerIDWidth = 7

// FlaggedIDs extracts the identifiers of every star the report flags, in
// order of first appearance. Lines matching neither flag shape contribute
// nothing; malformed ID fields are skipped rather than reported.
func (r FitReport) FlaggedIDs() []int {
	var ids []int
	seen := make(map[int]struct{})

	add := func(id int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, line := range strings.Split(r.Text, "\n") {
		if m := rejectedStarRe.FindStringSubmatch(line); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				add(id)
			}
			continue
		}

		for _, off := range markerOffsets {
			if off >= len(line) {
				break
			}
			if line[off] != '?' && line[off] != '*' {
				continue
			}
			field := strings.TrimSpace(line[off-8-markerIDWidth : off-8])
			if id, err := strconv.Atoi(field); err == nil {
				add(id)
			}
		}
	}

	return ids
}

// HasFlags reports whether the report flags any star at all.
func (r FitReport) HasFlags() bool {
	return len(r.FlaggedIDs()) > 0
}
