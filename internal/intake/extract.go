package intake

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Extraction is the partial result of one pass over user text. Only fields
// the extractor is confident about appear here; ambiguous input yields an
// empty result, never a guess.
type Extraction struct {
	Fields    map[Field]string
	TechStack []string
}

// Empty reports whether the pass produced nothing.
func (e Extraction) Empty() bool {
	return len(e.Fields) == 0 && len(e.TechStack) == 0
}

// strategyFunc is a pure pattern matcher for one field. Stage context
// disambiguates short free-text answers: name, role and location only match
// when the conversation is currently asking for exactly that field.
type strategyFunc func(text string, stage Stage) (string, bool)

var fieldStrategies = map[Field]strategyFunc{
	FieldEmail:      extractEmail,
	FieldPhone:      extractPhone,
	FieldExperience: extractExperience,
	FieldName:       extractName,
	FieldRole:       extractRole,
	FieldLocation:   extractLocation,
}

// Extract parses the user text for candidate fields given the current stage
// and the already-known context. It is a pure function: known is read-only
// and fields already set are never returned again.
func Extract(text string, stage Stage, known *CandidateContext) Extraction {
	out := Extraction{Fields: make(map[Field]string)}

	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}

	for _, field := range fieldOrder {
		if known != nil && known.Get(field) != "" {
			continue
		}
		strategy := fieldStrategies[field]
		if strategy == nil {
			continue
		}
		if value, ok := strategy(text, stage); ok {
			out.Fields[field] = value
		}
	}

	if stage == StageCollectingTechStack {
		out.TechStack = extractTechStack(text, known)
	}

	return out
}

// Apply merges an extraction into the context. Field values never overwrite
// existing ones and tech tokens are deduplicated, so a repeated extraction is
// a harmless confirmation.
func (c *CandidateContext) Apply(ext Extraction) {
	for _, field := range fieldOrder {
		if value, ok := ext.Fields[field]; ok {
			c.Set(field, value)
		}
	}
	c.AddTech(ext.TechStack...)
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\(?\d[\d\s\-().]{5,17}\d`)
	expRe   = regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*(?:years?|yrs?)`)
)

func extractEmail(text string, _ Stage) (string, bool) {
	match := emailRe.FindString(text)
	if match == "" {
		return "", false
	}
	return strings.ToLower(match), true
}

func extractPhone(text string, _ Stage) (string, bool) {
	// Strip emails first so their digits cannot masquerade as a number.
	text = emailRe.ReplaceAllString(text, " ")

	match := phoneRe.FindString(text)
	if match == "" {
		return "", false
	}

	var digits strings.Builder
	for _, r := range match {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	if digits.Len() < 7 || digits.Len() > 15 {
		return "", false
	}

	normalized := digits.String()
	if strings.HasPrefix(strings.TrimSpace(match), "+") {
		normalized = "+" + normalized
	}

	return normalized, true
}

func extractExperience(text string, _ Stage) (string, bool) {
	match := expRe.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}

	years, err := strconv.Atoi(match[1])
	if err != nil || years < 0 || years > 60 {
		return "", false
	}

	return strconv.Itoa(years), true
}

var namePrefixes = []string{
	"my name is", "my full name is", "i am called", "this is", "i am", "i'm", "name:",
}

// greetingWords are salutations that look like name words but never are one.
// Leading greetings are stripped; a message that is nothing but a greeting
// yields no name at all.
var greetingWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "greetings": {}, "there": {},
	"good": {}, "morning": {}, "afternoon": {}, "evening": {},
}

func extractName(text string, stage Stage) (string, bool) {
	if stage != StageGreeting && stage != StageCollectingName {
		return "", false
	}

	candidate := stripPrefix(text, namePrefixes)
	candidate = strings.Trim(candidate, " .!,")
	if candidate == "" || strings.ContainsAny(candidate, "@0123456789") {
		return "", false
	}

	words := strings.Fields(candidate)
	for len(words) > 0 {
		word := strings.ToLower(strings.Trim(words[0], " .!,"))
		if _, ok := greetingWords[word]; !ok {
			break
		}
		words = words[1:]
	}

	if len(words) == 0 || len(words) > 4 {
		return "", false
	}

	for _, word := range words {
		if !isNameWord(word) {
			return "", false
		}
	}

	return titleCase(strings.Join(words, " ")), true
}

var rolePrefixes = []string{
	"i am interested in", "i'm interested in", "interested in", "i want to be",
	"i would like to be", "i am applying for", "applying for", "looking for",
	"position:", "role:",
}

func extractRole(text string, stage Stage) (string, bool) {
	if stage != StageCollectingRole {
		return "", false
	}
	return shortAnswer(text, rolePrefixes, 6)
}

var locationPrefixes = []string{
	"i live in", "i am based in", "i'm based in", "based in", "currently in",
	"i am from", "i'm from", "location:",
}

func extractLocation(text string, stage Stage) (string, bool) {
	if stage != StageCollectingLocation {
		return "", false
	}
	return shortAnswer(text, locationPrefixes, 5)
}

// shortAnswer accepts a short declarative reply as the field value once the
// obvious lead-in phrasing is stripped. Longer or noisy input is rejected so
// the field stays unset rather than wrong.
func shortAnswer(text string, prefixes []string, maxWords int) (string, bool) {
	candidate := stripPrefix(text, prefixes)
	candidate = strings.Trim(candidate, " .!,")

	if candidate == "" || len(candidate) > 60 || strings.Contains(candidate, "@") {
		return "", false
	}

	if len(strings.Fields(candidate)) > maxWords {
		return "", false
	}

	return candidate, true
}

func stripPrefix(text string, prefixes []string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, prefix := range prefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return trimmed
}

func isNameWord(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
			return false
		}
	}
	return true
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
