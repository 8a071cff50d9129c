package dispatch

import (
	"sort"
	"strings"

	"mvdan.cc/xurls/v2"
)

var (
	schemeURL = xurls.Strict()
	// Relaxed matching needs a known TLD, so "S.Paulo" or "sim." never match.
	bareURL = xurls.Relaxed()
)

const trailing = ".,;:!?)]}"

// ExtractURLs returns the links in text, in order of appearance, without duplicates.
func ExtractURLs(text string) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	add := func(u string) {
		u = strings.TrimRight(u, trailing)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	type hit struct {
		start int
		url   string
	}
	var hits []hit
	covered := schemeURL.FindAllStringIndex(text, -1)
	for _, loc := range covered {
		hits = append(hits, hit{loc[0], text[loc[0]:loc[1]]})
	}
	for _, loc := range bareURL.FindAllStringIndex(text, -1) {
		inside := false
		for _, c := range covered {
			if loc[0] >= c[0] && loc[1] <= c[1] {
				inside = true
				break
			}
		}
		if !inside {
			hits = append(hits, hit{loc[0], text[loc[0]:loc[1]]})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	for _, h := range hits {
		add(h.url)
	}
	return out
}
