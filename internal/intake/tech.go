package intake

import (
	"regexp"
	"strings"
	"unicode"
)

// techKeywords is the curated vocabulary of languages, frameworks, databases
// and tools recognized anywhere in a tech-stack answer. Matching is
// case-insensitive; the casing the candidate typed is what gets stored.
var techKeywords = []string{
	"python", "javascript", "typescript", "java", "c++", "c#", "golang", "go", "rust",
	"ruby", "php", "swift", "kotlin", "scala", "matlab",
	"react", "angular", "vue", "next.js", "nuxt", "svelte",
	"django", "flask", "fastapi", "spring", "express", "nest.js",
	"node.js", "nodejs", "deno",
	"postgresql", "postgres", "mysql", "sqlite", "mongodb", "redis", "cassandra",
	"elasticsearch", "firebase", "supabase",
	"docker", "kubernetes", "terraform", "ansible",
	"aws", "gcp", "azure", "heroku", "vercel",
	"git", "github", "gitlab", "jira", "linux",
	"machine learning", "deep learning", "tensorflow", "pytorch",
	"pandas", "numpy", "scikit-learn", "spark", "hadoop",
	"graphql", "rest", "grpc", "kafka", "rabbitmq",
}

var keywordPatterns = compileKeywordPatterns(techKeywords)

func compileKeywordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		expr := `(?i)\b` + regexp.QuoteMeta(kw)
		// A trailing word boundary cannot follow non-word runes like "+" or "#".
		if last, _ := utfLast(kw); isWordRune(last) {
			expr += `\b`
		}
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}

func utfLast(s string) (rune, bool) {
	var last rune
	found := false
	for _, r := range s {
		last = r
		found = true
	}
	return last, found
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// listStopwords filter out conversational filler from comma-separated lists.
var listStopwords = map[string]struct{}{
	"i": {}, "we": {}, "use": {}, "using": {}, "used": {}, "work": {}, "worked": {},
	"with": {}, "mostly": {}, "mainly": {}, "also": {}, "etc": {}, "the": {},
	"a": {}, "an": {}, "my": {}, "some": {}, "of": {}, "in": {}, "on": {},
	"and": {}, "have": {}, "experience": {}, "stack": {}, "tech": {},
	"know": {}, "familiar": {}, "proficient": {},
}

var listSplitRe = regexp.MustCompile(`(?i)\s*(?:,|;|/|\band\b|\n)\s*`)

// extractTechStack collects technology tokens from the text: every curated
// keyword found anywhere, plus plausible extra entries from comma/and
// separated lists. Tokens already present in the known stack are dropped.
func extractTechStack(text string, known *CandidateContext) []string {
	seen := make(map[string]struct{})
	if known != nil {
		for _, t := range known.TechStack {
			seen[strings.ToLower(t)] = struct{}{}
		}
	}

	var found []string
	add := func(token string) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		key := strings.ToLower(token)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		found = append(found, token)
	}

	for _, pattern := range keywordPatterns {
		if match := pattern.FindString(text); match != "" {
			add(match)
		}
	}

	for _, token := range listSplitRe.Split(text, -1) {
		token = strings.Trim(token, " .!")
		if !plausibleListToken(token) {
			continue
		}
		add(token)
	}

	return found
}

// plausibleListToken keeps free-list entries that look like technology names
// and rejects conversational fragments. Omission is preferred over junk.
func plausibleListToken(token string) bool {
	if token == "" || len(token) > 30 {
		return false
	}

	words := strings.Fields(token)
	if len(words) == 0 || len(words) > 3 {
		return false
	}

	hasLetter := false
	for _, word := range words {
		if _, stop := listStopwords[strings.ToLower(word)]; stop {
			return false
		}
		for _, r := range word {
			if unicode.IsLetter(r) {
				hasLetter = true
			}
			if r == '@' {
				return false
			}
			if unicode.IsDigit(r) {
				return false
			}
		}
	}

	return hasLetter
}
