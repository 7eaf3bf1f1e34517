package assets

import (
	"regexp"
	"strings"
)

var (
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	newlineRunRe = regexp.MustCompile(`\n{1,2}`)
	imageTailRe  = regexp.MustCompile(`!\[.*\]\(.*\)$`)
	imageHeadRe  = regexp.MustCompile(`^!\[.*\]\(.*\)`)
)

// Normalize collapses runs of three or more line breaks to two and joins
// adjacent image lines into one paragraph, separated by a single space.
// Normalize is idempotent.
func Normalize(text string) string {
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	var (
		b    strings.Builder
		last int
	)
	for _, loc := range newlineRunRe.FindAllStringIndex(text, -1) {
		if !imageTailRe.MatchString(lineBefore(text, loc[0])) || !imageHeadRe.MatchString(lineAfter(text, loc[1])) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteByte(' ')
		last = loc[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func lineBefore(text string, end int) string {
	start := strings.LastIndexByte(text[:end], '\n') + 1
	return text[start:end]
}

func lineAfter(text string, start int) string {
	if i := strings.IndexByte(text[start:], '\n'); i >= 0 {
		return text[start : start+i]
	}
	return text[start:]
}
