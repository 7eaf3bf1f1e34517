package assets

import "regexp"

// Reference is one remote asset occurrence. Start and End delimit the URL
// inside the scanned text.
type Reference struct {
	Kind    Kind   `json:"kind"`
	URL     string `json:"url"`
	Ordinal int    `json:"ordinal"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Hosts are limited to Notion's file storage and Unsplash covers. pdf and
// movie references must sit inside a markdown link.
var patterns = map[Kind]*regexp.Regexp{
	Image: regexp.MustCompile(
		`(?m)^cover:[ \t]+(https?://\S*(?:images\.unsplash\.com|amazonaws)\S*)` +
			`|(https?://[^\s()]*?(?:images\.unsplash\.com|amazonaws)[^\s()]*?\.(?:jpg|jpeg|gif|png|webp)[^\s()]*)\)`),
	PDF: regexp.MustCompile(
		`\[[^\]\n]*\]\((https?://[^\s()]*amazonaws[^\s()]*\.pdf[^\s()]*)\)`),
	Movie: regexp.MustCompile(
		`\[[^\]\n]*\]\((https?://[^\s()]*amazonaws[^\s()]*\.(?:mov|mp4)[^\s()]*)\)`),
}

// Discover returns every asset reference in text. Kinds come in the order
// image, pdf, movie; within a kind references are in first-seen order and
// numbered from 0. A span already claimed by an earlier kind is skipped.
func Discover(text string) []Reference {
	var (
		out     []Reference
		claimed [][2]int
	)
	for _, kind := range Kinds {
		ordinal := 0
		for _, m := range patterns[kind].FindAllStringSubmatchIndex(text, -1) {
			start, end := urlSpan(m)
			if start < 0 || overlaps(claimed, start, end) {
				continue
			}
			out = append(out, Reference{
				Kind:    kind,
				URL:     text[start:end],
				Ordinal: ordinal,
				Start:   start,
				End:     end,
			})
			claimed = append(claimed, [2]int{start, end})
			ordinal++
		}
	}
	return out
}

// urlSpan returns the first participating capture group.
func urlSpan(m []int) (int, int) {
	for i := 2; i+1 < len(m); i += 2 {
		if m[i] >= 0 {
			return m[i], m[i+1]
		}
	}
	return -1, -1
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}
