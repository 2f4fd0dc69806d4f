// Package redact detects contact information in conversation text and
// replaces it with a mask token before anything is persisted. Detection is
// deterministic and side-effect-free: the same input always produces the
// same output, and masked output never matches the patterns again.
package redact

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/width"
)

// MaskToken replaces every detected span. Fixed width so the mask leaks
// nothing about the redacted content's length.
const MaskToken = "******"

var patterns = []*regexp.Regexp{
	// Email addresses.
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	// Open chat links (open.kakao.com/o/...), with or without scheme.
	regexp.MustCompile(`(?i)(?:https?://)?open\.kakao\.com/[A-Za-z0-9/_-]+`),
	// "kakao id: someid" style phrases, Korean or Latin.
	regexp.MustCompile(`(?i)(?:kakao(?:talk)?|katalk|카카오(?:톡)?|카톡)\s*(?:id|아이디)?\s*[:：]\s*[A-Za-z0-9._-]{3,}`),
	// Korean phone numbers: mobile (010/011/...), Seoul (02), area codes,
	// +82 international form, with space/dot/dash separators or none.
	regexp.MustCompile(`(?:\+82[\s.-]?|\b0)(?:1[016789]|2|[3-6][1-5])[\s.-]?\d{3,4}[\s.-]?\d{4}\b`),
}

// Messenger handles: standalone @name of four or more characters. Shorter
// handles are too ambiguous to redact (false positives on "@2pm" etc).
var handlePattern = regexp.MustCompile(`(?:^|[\s(\[])(@[A-Za-z0-9_.]{4,})`)

type span struct{ start, end int }

// DetectAndMask scans text for phone numbers, emails, messenger handles
// and open-chat links, and replaces each detected span with MaskToken.
// Surrounding text is never altered. The second return reports whether
// anything was detected.
func DetectAndMask(text string) (string, bool) {
	folded, toOrig := foldWidth(text)

	var spans []span

	for _, re := range patterns {
		for _, m := range re.FindAllStringIndex(folded, -1) {
			spans = append(spans, span{start: m[0], end: m[1]})
		}
	}

	for _, m := range handlePattern.FindAllStringSubmatchIndex(folded, -1) {
		spans = append(spans, span{start: m[2], end: m[3]})
	}

	if len(spans) == 0 {
		return text, false
	}

	var sb strings.Builder

	last := 0

	for _, sp := range mergeSpans(spans) {
		origStart := toOrig[sp.start]
		origEnd := toOrig[sp.end]

		sb.WriteString(text[last:origStart])
		sb.WriteString(MaskToken)
		last = origEnd
	}

	sb.WriteString(text[last:])

	return sb.String(), true
}

// foldWidth maps full-width characters (０１０, common in Korean input) to
// their narrow forms so the patterns match, and returns the folded text
// with a byte-offset map back into the original. Folding is rune for
// rune, so every folded rune boundary corresponds to an original one:
// toOrig[b] is the original offset of the rune starting at folded offset
// b, and toOrig[len(folded)] == len(text).
func foldWidth(text string) (string, []int) {
	var sb strings.Builder

	var toOrig []int

	for oi, r := range text {
		if f := width.LookupRune(r).Folded(); f != 0 {
			r = f
		}

		sb.WriteRune(r)

		for len(toOrig) < sb.Len() {
			toOrig = append(toOrig, oi)
		}
	}

	return sb.String(), append(toOrig, len(text))
}

// mergeSpans sorts and coalesces overlapping spans.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:1]

	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}

			continue
		}

		merged = append(merged, sp)
	}

	return merged
}
