package intake

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Field names a single piece of candidate information collected during the
// screening. The set of fields is fixed for the whole session.
type Field string

const (
	FieldName       Field = "name"
	FieldEmail      Field = "email"
	FieldPhone      Field = "phone"
	FieldExperience Field = "experience_years"
	FieldRole       Field = "desired_role"
	FieldLocation   Field = "location"
)

// fieldOrder is the canonical collection order. Iteration over Fields always
// goes through this slice so serialized output stays deterministic.
var fieldOrder = []Field{
	FieldName,
	FieldEmail,
	FieldPhone,
	FieldExperience,
	FieldRole,
	FieldLocation,
}

// Question is one generated technical question and its answer progress.
type Question struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Answered bool   `json:"answered"`
}

// CandidateContext is the full record of one screening session. It is owned
// by a single Session and mutated only between turns; the orchestrator works
// on a clone until the turn outcome is known.
type CandidateContext struct {
	Fields    map[Field]string `json:"fields"`
	TechStack []string         `json:"tech_stack"`
	Questions []Question       `json:"questions"`
	Stage     Stage            `json:"stage"`
	TurnCount int              `json:"turn_count"`

	// ReAsks counts consecutive turns the current collecting stage failed to
	// produce its field. It resets on every stage change.
	ReAsks int `json:"re_asks"`
	// Skipped lists fields abandoned after the re-ask limit was exhausted.
	// Persisted as an internal note; never shown to the candidate.
	Skipped []string `json:"skipped,omitempty"`
}

// NewContext creates a fresh context at the greeting stage with no fields set.
func NewContext() *CandidateContext {
	return &CandidateContext{
		Fields: make(map[Field]string),
		Stage:  StageGreeting,
	}
}

// Clone returns a deep copy. Turn processing mutates the copy and commits it
// back only when the external completion call succeeded.
func (c *CandidateContext) Clone() *CandidateContext {
	if c == nil {
		return nil
	}

	fields := make(map[Field]string, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = v
	}

	clone := &CandidateContext{
		Fields:    fields,
		TechStack: append([]string(nil), c.TechStack...),
		Questions: append([]Question(nil), c.Questions...),
		Stage:     c.Stage,
		TurnCount: c.TurnCount,
		ReAsks:    c.ReAsks,
		Skipped:   append([]string(nil), c.Skipped...),
	}

	return clone
}

// Get returns the value of a field, empty when unset.
func (c *CandidateContext) Get(field Field) string {
	return c.Fields[field]
}

// Set fills a field if it is still empty. Values once set are immutable for
// the session, so a repeated extraction is a no-op confirmation.
func (c *CandidateContext) Set(field Field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if c.Fields[field] != "" {
		return
	}
	c.Fields[field] = value
}

// AddTech appends technology tokens, deduplicating case-insensitively while
// keeping the first-seen casing for display.
func (c *CandidateContext) AddTech(tokens ...string) {
	known := make(map[string]struct{}, len(c.TechStack))
	for _, t := range c.TechStack {
		known[strings.ToLower(t)] = struct{}{}
	}

	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		c.TechStack = append(c.TechStack, t)
	}
}

// SetQuestions populates the generated question list. It is effective exactly
// once: a non-empty list is never replaced.
func (c *CandidateContext) SetQuestions(texts []string) {
	if len(c.Questions) > 0 || len(texts) == 0 {
		return
	}

	for i, text := range texts {
		c.Questions = append(c.Questions, Question{Index: i + 1, Text: text})
	}
}

// MarkAnswered flags the next unanswered question. Returns false when all
// questions are already answered or none were generated.
func (c *CandidateContext) MarkAnswered() bool {
	for i := range c.Questions {
		if !c.Questions[i].Answered {
			c.Questions[i].Answered = true
			return true
		}
	}
	return false
}

// AnsweredCount returns the number of answered technical questions.
func (c *CandidateContext) AnsweredCount() int {
	count := 0
	for _, q := range c.Questions {
		if q.Answered {
			count++
		}
	}
	return count
}

// CollectedCount returns how many of the fixed fields are set.
func (c *CandidateContext) CollectedCount() int {
	count := 0
	for _, f := range fieldOrder {
		if c.Fields[f] != "" {
			count++
		}
	}
	return count
}

// FirstName returns the candidate's first name for personalised copy, or
// "there" when the name is unknown.
func (c *CandidateContext) FirstName() string {
	name := strings.TrimSpace(c.Get(FieldName))
	if name == "" {
		return "there"
	}
	return strings.Fields(name)[0]
}

func (c *CandidateContext) markSkipped(name string) {
	for _, s := range c.Skipped {
		if s == name {
			return
		}
	}
	c.Skipped = append(c.Skipped, name)
}

// NewSessionID derives a short unique session identifier.
func NewSessionID() string {
	seed := fmt.Sprintf("%d", time.Now().UTC().UnixNano())
	sum := sha256.Sum256([]byte(seed))
	return fmt.Sprintf("ts_%x", sum[:6])
}
