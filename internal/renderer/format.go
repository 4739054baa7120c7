package renderer

import (
	"regexp"
	"strings"
)

var (
	closingPrefix = regexp.MustCompile(`(?i)^Yours +(faithfully|sincerely)`)
	numberedItem  = regexp.MustCompile(`^\d+\.`)
)

// StripFrontMatter removes a leading YAML front-matter block (--- delimited)
// from template content, returning the body only. Content without
// front-matter passes through unchanged.
func StripFrontMatter(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return content
	}
	return strings.TrimSpace(parts[2])
}

// FormatDraft decorates a rendered draft with markdown structure: the title
// becomes a heading, dates, subjects, salutations, closings, and contact
// lines are bolded, and ALL-CAPS section headers become subheadings. The
// pass is presentation-only — it never changes substituted values — and
// skips lines that already carry markdown decoration, so running it twice
// is the same as running it once.
func FormatDraft(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		stripped := strings.TrimSpace(line)

		switch {
		case stripped == "":
			out = append(out, "")

		// Already decorated — leave alone.
		case strings.HasPrefix(stripped, "#") || strings.HasPrefix(stripped, "**"):
			out = append(out, stripped)

		// Main title: first line, or a short shouted line.
		case i == 0 || (isUpper(stripped) && len(strings.Fields(stripped)) <= 6 && !strings.HasSuffix(stripped, ":")):
			out = append(out, "# "+stripped)

		case strings.HasPrefix(stripped, "Date:"):
			out = append(out, "**"+stripped+"**", "")

		case stripped == "To," || stripped == "From:":
			out = append(out, "**"+stripped+"**")

		case strings.HasPrefix(stripped, "Subject:"):
			out = append(out, "**"+stripped+"**", "")

		// Section headers: ALL CAPS ending in a colon.
		case isUpper(stripped) && strings.HasSuffix(stripped, ":") && len(strings.Fields(stripped)) <= 5:
			out = append(out, "", "### "+strings.TrimSuffix(stripped, ":"), "")

		case strings.HasPrefix(stripped, "Dear "):
			out = append(out, "**"+stripped+"**", "")

		case closingPrefix.MatchString(stripped):
			out = append(out, "", "**"+stripped+"**")

		case strings.HasPrefix(stripped, "-") || numberedItem.MatchString(stripped):
			out = append(out, stripped)

		case strings.HasPrefix(stripped, "Contact:") || strings.HasPrefix(stripped, "Email:") || strings.HasPrefix(stripped, "Address:"):
			out = append(out, "**"+stripped+"**")

		// A bare line near the end is probably the signatory's name.
		case i > len(lines)-5 && !looksLikeProse(stripped):
			out = append(out, "**"+stripped+"**")

		default:
			out = append(out, stripped)
		}
	}

	return excessNewline.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
}

// isUpper reports whether s contains at least one letter and no lowercase
// letters.
func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if (r >= 'A' && r <= 'Z') || r > 127 {
			hasLetter = true
		}
	}
	return hasLetter
}

// looksLikeProse reports whether a trailing line reads as sentence text
// rather than a signature.
func looksLikeProse(s string) bool {
	for _, prefix := range []string{"I ", "The ", "Please ", "Enclosed "} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
