package search

import (
	"regexp"
	"strings"
)

// junkPhrases mark lines that belong to page chrome, marketing, or articles
// wrapped around the actual document. A line matching one of these starts a
// skip region that lasts until legal-looking content resumes.
var junkPhrases = []string{
	"we use cookies",
	"click here to",
	"read more",
	"read less",
	"by clicking",
	"cookie policy",
	"privacy policy",
	"terms of service",
	"subscribe",
	"newsletter",
	"sign up",
	"log in",
	"create account",
	"view this form",
	"buy now",
	"download now",
	"instant download",
	"form preview",
	"related forms",
	"faq",
	"more info",
	"category:",
	"control #:",
	"format:",
	"form popularity",
}

// sectionStarters begin lines that open legal document sections; they always
// survive cleaning and end any skip region.
var sectionStarters = []string{
	"date:",
	"to:",
	"from:",
	"re:",
	"subject:",
	"dear",
	"sincerely",
	"regards",
	"signature",
	"notice of",
	"letter of",
	"agreement",
	"hereby",
}

// legalKeywords identify body text that reads as document content rather
// than page chrome.
var legalKeywords = []string{
	"date", "hereby", "employee", "employer", "termination",
	"notice", "agreement", "party", "witness", "signature",
	"insurance", "benefits", "claim", "release", "pay",
}

var blankRuns = regexp.MustCompile(`\n{4,}`)

// Clean strips cookie banners, navigation, marketing copy, and other web
// noise from fetched page text, keeping the legal document inside it.
// Document structure and placeholder patterns ([DATE], {{name}}) survive.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	var kept []string
	skipping := false

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" {
			if len(kept) > 0 && kept[len(kept)-1] != "" {
				kept = append(kept, "")
			}
			continue
		}

		lower := strings.ToLower(line)

		if containsAny(lower, sectionStarters) {
			skipping = false
			kept = append(kept, line)
			continue
		}

		if containsAny(lower, junkPhrases) {
			skipping = true
			continue
		}

		if skipping {
			if containsAny(lower, legalKeywords) {
				skipping = false
			} else {
				continue
			}
		}

		switch {
		// Bare URLs and markdown links are navigation.
		case strings.HasPrefix(line, "http"):
			continue
		case strings.Contains(line, "](") && strings.Contains(line, "http"):
			continue
		// Short shouted lines are headlines, not content.
		case len(line) < 80 && line == strings.ToUpper(line) && strings.Count(line, " ") < 3 && !strings.ContainsAny(line, "[]{}"):
			continue
		// Symbol-heavy lines are metadata.
		case symbolCount(line) > 5:
			continue
		// Placeholder-bearing lines are the document's whole point.
		case strings.Contains(line, "[") && strings.Contains(line, "]"):
			kept = append(kept, line)
		case containsAny(lower, legalKeywords):
			kept = append(kept, line)
		case len(line) > 40:
			kept = append(kept, line)
		}
	}

	out := strings.Join(kept, "\n")
	out = blankRuns.ReplaceAllString(out, "\n\n\n")
	out = strings.ReplaceAll(out, `\[`, "[")
	out = strings.ReplaceAll(out, `\]`, "]")
	out = stripNonASCII(out)
	return strings.TrimSpace(out)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func symbolCount(s string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune("#@$%^&*~|", r) {
			n++
		}
	}
	return n
}

// stripNonASCII drops stray unicode characters that survive scraping,
// keeping newlines.
func stripNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 || r == '\n' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
