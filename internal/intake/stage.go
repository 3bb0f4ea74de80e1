package intake

import "strings"

// Stage is a named phase of the guided conversation. Stages only move forward
// in the declared order; the single exception is the jump to StageExited,
// reachable from anywhere when the candidate types an exit keyword.
type Stage string

const (
	StageGreeting            Stage = "greeting"
	StageCollectingName      Stage = "collecting_name"
	StageCollectingEmail     Stage = "collecting_email"
	StageCollectingPhone     Stage = "collecting_phone"
	StageCollectingExp       Stage = "collecting_experience"
	StageCollectingRole      Stage = "collecting_role"
	StageCollectingLocation  Stage = "collecting_location"
	StageCollectingTechStack Stage = "collecting_tech_stack"
	StageTechnicalQuestions  Stage = "technical_questions"
	StageClosing             Stage = "closing"
	StageClosed              Stage = "closed"
	StageExited              Stage = "exited"
)

// stageOrder is the forward progression. StageExited sits outside it.
var stageOrder = []Stage{
	StageGreeting,
	StageCollectingName,
	StageCollectingEmail,
	StageCollectingPhone,
	StageCollectingExp,
	StageCollectingRole,
	StageCollectingLocation,
	StageCollectingTechStack,
	StageTechnicalQuestions,
	StageClosing,
	StageClosed,
}

// collectingField maps each field-collecting stage to the field it gathers.
// StageCollectingTechStack is handled separately: it is satisfied by a
// non-empty tech stack instead of a field value.
var collectingField = map[Stage]Field{
	StageCollectingName:     FieldName,
	StageCollectingEmail:    FieldEmail,
	StageCollectingPhone:    FieldPhone,
	StageCollectingExp:      FieldExperience,
	StageCollectingRole:     FieldRole,
	StageCollectingLocation: FieldLocation,
}

const techStackSkipName = "tech_stack"

// Index returns the position of the stage in the forward order, or -1 for
// StageExited and unknown values.
func (s Stage) Index() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether the session is over.
func (s Stage) Terminal() bool {
	return s == StageClosed || s == StageExited
}

// Label returns a human-readable stage name for progress rendering.
func (s Stage) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// DefaultExitKeywords end the session immediately when the trimmed user input
// matches one of them case-insensitively.
var DefaultExitKeywords = []string{"exit", "quit", "bye", "goodbye", "end", "stop", "done"}

const defaultReAskLimit = 3

// StageMachine decides stage progression from the context alone. The
// field-driven rule here is authoritative for collecting stages; the response
// scanner only corroborates question generation and closing.
type StageMachine struct {
	reAskLimit   int
	exitKeywords map[string]struct{}
}

// NewStageMachine builds a machine with the given re-ask bound and exit
// keyword set. Zero/empty arguments fall back to the defaults.
func NewStageMachine(reAskLimit int, exitKeywords []string) *StageMachine {
	if reAskLimit <= 0 {
		reAskLimit = defaultReAskLimit
	}

	if len(exitKeywords) == 0 {
		exitKeywords = DefaultExitKeywords
	}

	keywords := make(map[string]struct{}, len(exitKeywords))
	for _, kw := range exitKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords[kw] = struct{}{}
		}
	}

	return &StageMachine{reAskLimit: reAskLimit, exitKeywords: keywords}
}

// IsExit reports whether the raw user input requests to end the session. The
// check runs before extraction and short-circuits everything else.
func (m *StageMachine) IsExit(input string) bool {
	_, ok := m.exitKeywords[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// Next computes the stage after the current turn's extraction has been merged
// into c. It may mutate the re-ask counter and the skipped-field notes, so it
// must be called on the provisional copy of the context.
func (m *StageMachine) Next(c *CandidateContext) Stage {
	switch c.Stage {
	case StageClosed, StageExited:
		return c.Stage

	case StageClosing:
		// One-turn farewell state.
		return StageClosed

	case StageTechnicalQuestions:
		if len(c.Questions) > 0 && c.AnsweredCount() >= len(c.Questions) {
			return StageClosing
		}
		return StageTechnicalQuestions

	case StageGreeting:
		c.ReAsks = 0
		return m.firstUnsatisfied(c, StageCollectingName)

	default:
		return m.nextFromCollecting(c)
	}
}

func (m *StageMachine) nextFromCollecting(c *CandidateContext) Stage {
	stage := c.Stage

	if m.satisfied(c, stage) {
		c.ReAsks = 0
		return m.firstUnsatisfied(c, stage)
	}

	c.ReAsks++
	if c.ReAsks < m.reAskLimit {
		return stage
	}

	// Re-ask budget exhausted: record the gap and force progress so an
	// uncooperative input stream cannot loop forever.
	c.markSkipped(skipName(stage))
	c.ReAsks = 0
	return m.firstUnsatisfied(c, stage)
}

// firstUnsatisfied walks the collecting stages starting at from and returns
// the first one still missing its data, or StageTechnicalQuestions when the
// whole profile is collected. Already-satisfied stages are skipped, which is
// how one rich answer can advance past several stages at once.
func (m *StageMachine) firstUnsatisfied(c *CandidateContext, from Stage) Stage {
	start := from.Index()
	if start < StageCollectingName.Index() {
		start = StageCollectingName.Index()
	}

	for i := start; i <= StageCollectingTechStack.Index(); i++ {
		stage := stageOrder[i]
		if !m.satisfied(c, stage) {
			return stage
		}
	}

	return StageTechnicalQuestions
}

func (m *StageMachine) satisfied(c *CandidateContext, stage Stage) bool {
	if stage == StageCollectingTechStack {
		return len(c.TechStack) > 0 || c.skipped(techStackSkipName)
	}

	field, ok := collectingField[stage]
	if !ok {
		return true
	}

	return c.Get(field) != "" || c.skipped(string(field))
}

func (c *CandidateContext) skipped(name string) bool {
	for _, s := range c.Skipped {
		if s == name {
			return true
		}
	}
	return false
}

func skipName(stage Stage) string {
	if stage == StageCollectingTechStack {
		return techStackSkipName
	}
	return string(collectingField[stage])
}
