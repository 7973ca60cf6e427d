package agent

import (
	"regexp"
	"strings"
)

var greetingWords = map[string]bool{
	"hi":           true,
	"hello":        true,
	"hey":          true,
	"yo":           true,
	"sup":          true,
	"hola":         true,
	"hoi":          true,
	"hallo":        true,
	"heyo":         true,
	"goedemorgen":  true,
	"goedemiddag":  true,
	"goedenavond":  true,
}

var dutchGreetings = map[string]bool{
	"hoi":         true,
	"hallo":       true,
	"goedemorgen": true,
	"goedemiddag": true,
	"goedenavond": true,
}

var (
	nonWordRe      = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	queryCleanRe   = regexp.MustCompile(`[^a-zA-Z0-9\s\-_/]`)
	lookupPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^wat betekent\s+(.+?)\??$`),
		regexp.MustCompile(`^what does\s+(.+?)\s+mean\??$`),
		regexp.MustCompile(`^what is\s+(.+?)\??$`),
		regexp.MustCompile(`^meaning of\s+(.+?)\??$`),
	}
)

// MaybeSmalltalk answers short greetings immediately, without a provider
// call. Dutch greetings get a Dutch reply. Returns false when the input is
// not smalltalk.
func MaybeSmalltalk(userInput string) (string, bool) {
	cleaned := strings.TrimSpace(nonWordRe.ReplaceAllString(strings.ToLower(userInput), " "))
	if cleaned == "" {
		return "", false
	}

	words := strings.Fields(cleaned)
	if len(words) == 0 || len(words) > 3 {
		return "", false
	}
	for _, w := range words {
		if !greetingWords[w] {
			return "", false
		}
	}

	for _, w := range words {
		if dutchGreetings[w] {
			return "Hoi! Ik ben er. Zeg maar wat je wilt doen, dan help ik je direct.", true
		}
	}
	return "Hey! I'm here. Tell me what you want to build or fix.", true
}

// ExtractLookupQuery pulls a web-lookup query out of the user's message.
// Explicit "what is X" / "wat betekent X" phrasings win; otherwise short
// messages are used verbatim so unfamiliar terms get context prefetched.
// Returns the empty string when nothing is worth looking up.
func ExtractLookupQuery(userInput string) string {
	text := strings.TrimSpace(userInput)
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)
	for _, pattern := range lookupPatterns {
		if m := pattern.FindStringSubmatch(lowered); m != nil {
			return strings.Trim(m[1], " .,!?:;\"'")
		}
	}

	cleaned := strings.TrimSpace(queryCleanRe.ReplaceAllString(text, " "))
	words := strings.Fields(cleaned)
	if len(words) == 0 || len(words) > 12 {
		return ""
	}

	allGreetings := true
	for _, w := range words {
		if !greetingWords[strings.ToLower(w)] {
			allGreetings = false
			break
		}
	}
	if allGreetings {
		return ""
	}

	return strings.Join(words, " ")
}
