package intake

import (
	"regexp"
	"strings"
)

// Signal classifies what the assistant's latest response indicates about the
// conversation. The stage machine's field-driven rule stays authoritative for
// collecting stages; the scanner is authoritative only for question
// population and closing corroboration.
type Signal int

const (
	SignalNone Signal = iota
	SignalQuestionsGenerated
	SignalClosingDetected
)

// ScanResult carries the detected signal plus any parsed question texts.
// Questions may be non-empty even when the signal is SignalNone: a malformed
// block with fewer than three entries is reported for the caller's
// regeneration policy.
type ScanResult struct {
	Signal    Signal
	Questions []string
}

const (
	minQuestions = 3
	maxQuestions = 5
)

var (
	questionMarkerRe = regexp.MustCompile(`(?i)\*{0,2}question\s*\d+\*{0,2}[:.]?`)
	numberedLineRe   = regexp.MustCompile(`^\s*[*\-]?\s*\d+[.)]\s+(.{10,})`)
	closingPhrases   = []string{
		"thank you for your time", "best of luck", "good luck", "wish you",
		"session has ended", "we'll be in touch", "will be in touch",
		"have a great day", "profile has been submitted",
	}
)

// Scan inspects the assistant response for stage-relevant markers.
func Scan(stage Stage, response string) ScanResult {
	switch stage {
	case StageTechnicalQuestions:
		questions := parseQuestions(response)
		result := ScanResult{Questions: questions}
		if len(questions) >= minQuestions && len(questions) <= maxQuestions {
			result.Signal = SignalQuestionsGenerated
		}
		return result

	case StageClosing, StageClosed:
		if containsClosingPhrase(response) {
			return ScanResult{Signal: SignalClosingDetected}
		}
	}

	return ScanResult{}
}

// parseQuestions extracts numbered questions from the response, preferring
// explicit "Question N:" markers and falling back to plain numbered lists.
// At most five entries are kept.
func parseQuestions(text string) []string {
	var questions []string

	markers := questionMarkerRe.FindAllStringIndex(text, -1)
	for i, loc := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		q := cleanQuestion(text[loc[1]:end])
		if len(q) > 10 {
			questions = append(questions, q)
		}
	}

	if len(questions) == 0 {
		for _, line := range strings.Split(text, "\n") {
			if match := numberedLineRe.FindStringSubmatch(line); match != nil {
				if q := cleanQuestion(match[1]); q != "" {
					questions = append(questions, q)
				}
			}
		}
	}

	if len(questions) > maxQuestions {
		questions = questions[:maxQuestions]
	}

	return questions
}

func cleanQuestion(q string) string {
	q = strings.ReplaceAll(q, "\n", " ")
	q = strings.Trim(q, " *_")
	return strings.Join(strings.Fields(q), " ")
}

func containsClosingPhrase(response string) bool {
	lower := strings.ToLower(response)
	for _, phrase := range closingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
