package service

import "strings"

// redFlagKeywords is the fixed emergency list. Matching is a deliberate
// static substring check, not a classifier; the observable behavior of the
// filter depends on this exact list and its order.
var redFlagKeywords = []string{
	"can't breathe",
	"cannot breathe",
	"difficulty breathing",
	"difficulty swallowing",
	"swallowed",
	"severe bleeding",
	"uncontrolled bleeding",
	"bleeding",
	"severe pain",
	"unbearable pain",
	"snapped",
	"cutting",
	"fever",
	"swelling",
	"infection",
	"pus",
	"emergency",
	"urgent",
	"allergic reaction",
	"rash",
	"nausea",
	"vomiting",
	"dizziness",
	"fainting",
}

// SafetyFilter scans messages for emergency-indicating terms. It is a pure
// function over its fixed keyword list: no I/O, no state, same input same
// output.
type SafetyFilter struct {
	keywords []string
}

func NewSafetyFilter() *SafetyFilter {
	return &SafetyFilter{keywords: redFlagKeywords}
}

// Scan returns the matched keywords in list-definition order, not in order
// of appearance in the message. Matching is case-insensitive substring
// containment. An empty result means no concern was detected.
func (f *SafetyFilter) Scan(message string) []string {
	messageLower := strings.ToLower(message)

	var found []string
	for _, keyword := range f.keywords {
		if strings.Contains(messageLower, keyword) {
			found = append(found, keyword)
		}
	}

	return found
}
