package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/logger"
	"github.com/talentscout/screener/internal/utils"

	"go.uber.org/zap"
)

// ErrCompletion indicates the completion service failed for a turn even after
// the single local retry. The turn commits nothing when this happens.
var ErrCompletion = errors.New("completion service failed")

// ErrSessionOver is returned when a turn is submitted to a finished session.
var ErrSessionOver = errors.New("session is already finished")

// PersistMode tells the persistence collaborator whether the record is a
// snapshot of a live session or the final result.
type PersistMode string

const (
	PersistInProgress PersistMode = "in_progress"
	PersistFinal      PersistMode = "final"
)

// Persister is the outbound persistence collaborator. PII separation
// (redacted transcript, hashed email) is its contract, not the core's.
type Persister interface {
	Save(sessionID string, c *CandidateContext, transcript []ai.Message, mode PersistMode) error
}

// Config carries the orchestration knobs.
type Config struct {
	// Company brands the prompts and canned messages.
	Company string
	// ReAskLimit bounds how often a missing field is re-asked before the
	// stage force-advances. Zero means the default of 3.
	ReAskLimit int
	// ExitKeywords override the default session-ending inputs.
	ExitKeywords []string
	// MaxLogLength caps prompt/response previews in debug logs.
	MaxLogLength int
}

// Deps aggregates the orchestrator's collaborators.
type Deps struct {
	Completer ai.Completer
	Persister Persister
	Logger    *zap.Logger
}

const (
	// minAnswerLength is the shortest user reply counted as an answer to a
	// technical question.
	minAnswerLength = 10

	defaultMaxLogLength = 200
)

// Orchestrator drives screening sessions turn by turn. It is stateless across
// sessions; all per-session state lives in the Session it is handed.
type Orchestrator struct {
	completer ai.Completer
	persister Persister
	machine   *StageMachine
	composer  *Composer
	logger    *zap.Logger
	maxLogLen int
}

// NewOrchestrator builds an orchestrator from config and collaborators.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Orchestrator{
		completer: deps.Completer,
		persister: deps.Persister,
		machine:   NewStageMachine(cfg.ReAskLimit, cfg.ExitKeywords),
		composer:  NewComposer(cfg.Company),
		logger:    log,
		maxLogLen: maxLogLen,
	}
}

// Session owns one candidate's conversation: the context record plus the full
// message history. Exactly one turn may be in flight at a time.
type Session struct {
	ID      string
	Context *CandidateContext
	History []ai.Message

	// regenerated marks that the one-shot regeneration for a malformed
	// question block has been spent.
	regenerated bool
}

// NewSession starts a fresh session with the greeting already in the history.
func (o *Orchestrator) NewSession() *Session {
	greeting := o.composer.Greeting()
	return &Session{
		ID:      NewSessionID(),
		Context: NewContext(),
		History: []ai.Message{{Role: ai.RoleAssistant, Content: greeting}},
	}
}

// Greeting returns the canned opening message of a session.
func (o *Orchestrator) Greeting() string {
	return o.composer.Greeting()
}

// Progress summarises the session for read-only display alongside the chat.
func (s *Session) Progress() string {
	c := s.Context
	return fmt.Sprintf("stage: %s | fields: %d/%d | questions: %d/%d",
		c.Stage.Label(), c.CollectedCount(), len(fieldOrder), c.AnsweredCount(), len(c.Questions))
}

// Turn processes one user input and returns the assistant reply. All context
// mutation is provisional until the completion call outcome is known: a
// failed or aborted call leaves the session exactly as it was.
func (o *Orchestrator) Turn(ctx context.Context, s *Session, userText string) (string, error) {
	if s.Context.Stage.Terminal() {
		return "", ErrSessionOver
	}

	log := logger.WithFields(o.logger, logger.SessionFields(s.ID, string(s.Context.Stage))...)

	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		return "I didn't catch that - could you type your answer again?", nil
	}

	// Exit keywords short-circuit everything, including the completion call.
	if o.machine.IsExit(trimmed) {
		s.Context.Stage = StageExited
		s.Context.TurnCount++
		farewell := o.composer.Farewell(s.Context)
		s.History = append(s.History,
			ai.Message{Role: ai.RoleUser, Content: trimmed},
			ai.Message{Role: ai.RoleAssistant, Content: farewell},
		)
		log.Info("session exited by candidate", zap.Int("turns", s.Context.TurnCount))
		o.persist(log, s, PersistFinal)
		return farewell, nil
	}

	work := s.Context.Clone()

	extraction := Extract(trimmed, work.Stage, work)
	work.Apply(extraction)
	if extraction.Empty() {
		log.Debug("extraction found nothing confident")
	}

	if work.Stage == StageTechnicalQuestions && len(work.Questions) > 0 && len(trimmed) >= minAnswerLength {
		work.MarkAnswered()
	}

	tentative := o.machine.Next(work)

	// Closing is a one-turn state; reaching Closed needs no model call.
	if tentative == StageClosed {
		work.Stage = StageClosed
		work.TurnCount++
		farewell := o.composer.Farewell(work)
		s.Context = work
		s.History = append(s.History,
			ai.Message{Role: ai.RoleUser, Content: trimmed},
			ai.Message{Role: ai.RoleAssistant, Content: farewell},
		)
		log.Info("session closed", zap.Int("turns", work.TurnCount))
		o.persist(log, s, PersistFinal)
		return farewell, nil
	}

	prompt := o.composer.Compose(tentative, work)
	log.Debug("composed prompt",
		zap.String("tentative_stage", string(tentative)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, o.maxLogLen)),
	)

	reply, err := o.complete(ctx, prompt, s.History, trimmed)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Aborted turn: discard all provisional mutation.
			return "", err
		}
		log.Warn("completion failed, returning fallback without advancing", zap.Error(err))
		return FallbackMessage, nil
	}

	scan := Scan(tentative, reply)

	if tentative == StageTechnicalQuestions && len(work.Questions) == 0 {
		reply = o.resolveQuestionBlock(ctx, log, s, work, prompt, trimmed, reply, scan)
	}

	if scan.Signal == SignalClosingDetected {
		log.Debug("closing phrase corroborated by response")
	}

	work.Stage = tentative
	work.TurnCount++

	s.Context = work
	s.History = append(s.History,
		ai.Message{Role: ai.RoleUser, Content: trimmed},
		ai.Message{Role: ai.RoleAssistant, Content: reply},
	)

	o.persist(log, s, PersistInProgress)

	return reply, nil
}

// complete invokes the completion service, retrying exactly once with an
// unchanged prompt before giving up.
func (o *Orchestrator) complete(ctx context.Context, prompt string, history []ai.Message, userText string) (string, error) {
	reply, err := o.completer.Complete(ctx, prompt, history, userText)
	if err == nil {
		return reply, nil
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	o.logger.Debug("completion error, retrying once", zap.Error(err))

	reply, err = o.completer.Complete(ctx, prompt, history, userText)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	return reply, nil
}

// resolveQuestionBlock populates the question list from the scanned response.
// When the block is malformed (outside the 3-5 target) the generation
// instruction is re-issued once; after that, whatever was found is accepted
// so the session can never get stuck.
func (o *Orchestrator) resolveQuestionBlock(ctx context.Context, log *zap.Logger, s *Session, work *CandidateContext, prompt, userText, reply string, scan ScanResult) string {
	questions := scan.Questions

	if scan.Signal != SignalQuestionsGenerated && !s.regenerated {
		s.regenerated = true
		log.Debug("malformed question block, re-issuing generation",
			zap.Int("found", len(questions)),
		)

		retryReply, err := o.complete(ctx, prompt, s.History, userText)
		if err == nil {
			rescan := Scan(StageTechnicalQuestions, retryReply)
			if rescan.Signal == SignalQuestionsGenerated || len(rescan.Questions) > len(questions) {
				questions = rescan.Questions
				reply = retryReply
			}
		}
	}

	if len(questions) > 0 {
		work.SetQuestions(questions)
		log.Info("technical questions generated", zap.Int("count", len(questions)))
	}

	return reply
}

func (o *Orchestrator) persist(log *zap.Logger, s *Session, mode PersistMode) {
	if o.persister == nil {
		return
	}

	if err := o.persister.Save(s.ID, s.Context, s.History, mode); err != nil {
		log.Warn("persisting session", zap.String("mode", string(mode)), zap.Error(err))
	}
}
