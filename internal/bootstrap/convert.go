package bootstrap

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// bracketVar matches placeholders like [DATE] or [Name of Insurer].
	bracketVar = regexp.MustCompile(`\[([A-Za-z][A-Za-z0-9 /&'.-]{0,60})\]`)
	// blankRun matches fill-in-the-blank runs: 15+ underscores, dots, or dashes.
	blankRun = regexp.MustCompile(`[_]{15,}|[.]{15,}|[-]{15,}`)

	nonSlug      = regexp.MustCompile(`[^a-z0-9]+`)
	trailingWord = regexp.MustCompile(`([A-Za-z][A-Za-z ]{1,40})[:\s]*$`)
)

// legalKeywords is the vocabulary used to decide whether extracted text is a
// legal document at all, as opposed to an article about one.
var legalKeywords = []string{
	"agreement", "hereby", "whereas", "witnesseth", "notice", "undersigned",
	"party", "parties", "legal", "pursuant", "terms", "conditions",
	"liability", "jurisdiction", "clause", "affidavit", "deed", "policy",
	"claim", "insured", "insurer", "petitioner", "respondent",
}

// convertPlaceholders rewrites [VARIABLE] patterns into {{variable}} form.
func convertPlaceholders(text string) string {
	return bracketVar.ReplaceAllStringFunc(text, func(m string) string {
		inner := bracketVar.FindStringSubmatch(m)[1]
		return "{{" + slugKey(inner) + "}}"
	})
}

// convertBlanks turns fill-in-the-blank runs into placeholders, inferring
// the variable name from the text immediately before the blank. A run at
// line start borrows context from the previous non-empty line.
func convertBlanks(text string) string {
	lines := strings.Split(text, "\n")
	prevText := ""
	for i, line := range lines {
		if !blankRun.MatchString(line) {
			if strings.TrimSpace(line) != "" {
				prevText = line
			}
			continue
		}
		matches := blankRun.FindAllStringIndex(line, -1)
		var b strings.Builder
		last := 0
		for j, mi := range matches {
			before := line[last:mi[0]]
			if strings.TrimSpace(before) == "" {
				before = prevText
			}
			b.WriteString(line[last:mi[0]])
			b.WriteString("{{" + blankKey(before, j+1) + "}}")
			last = mi[1]
		}
		b.WriteString(line[last:])
		lines[i] = b.String()
		if strings.TrimSpace(lines[i]) != "" {
			prevText = lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// blankKey derives a placeholder key from the text preceding a blank run,
// like "Name of Insured: ______" producing name_of_insured.
func blankKey(before string, n int) string {
	m := trailingWord.FindStringSubmatch(strings.TrimSpace(before))
	if m != nil {
		if key := slugKey(m[1]); key != "" {
			return key
		}
	}
	if n > 1 {
		return "field_" + strconv.Itoa(n)
	}
	return "field"
}

func slugKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// looksLikeLegalDocument requires at least two distinct legal keywords.
func looksLikeLegalDocument(text string) bool {
	lower := strings.ToLower(text)
	found := 0
	for _, kw := range legalKeywords {
		if strings.Contains(lower, kw) {
			found++
			if found >= 2 {
				return true
			}
		}
	}
	return false
}
