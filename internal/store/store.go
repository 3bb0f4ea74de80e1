package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/intake"
)

const (
	candidatesDir = "candidates"
	sessionsDir   = "sessions"

	redactionMarker = "[REDACTED]"

	dirMode  = 0o750
	fileMode = 0o600
)

// Store persists screening sessions as JSON files with PII separation: the
// full profile goes into a restricted candidates directory, while the
// session log keeps only a redacted transcript and a one-way email hash.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates the store and its directory layout under dir.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	for _, sub := range []string{candidatesDir, sessionsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), dirMode); err != nil {
			return nil, fmt.Errorf("creating data directory %q: %w", sub, err)
		}
	}

	return &Store{dir: dir, logger: logger}, nil
}

// Profile is the typed candidate record stored in the restricted directory.
type Profile struct {
	FullName   string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Experience string `json:"experience_years"`
	Role       string `json:"desired_role"`
	Location   string `json:"location"`
}

type candidateRecord struct {
	SessionID string            `json:"session_id"`
	Timestamp string            `json:"timestamp"`
	Mode      string            `json:"mode"`
	Stage     string            `json:"stage"`
	Candidate Profile           `json:"candidate"`
	TechStack []string          `json:"tech_stack"`
	Questions []intake.Question `json:"questions,omitempty"`
}

type sessionRecord struct {
	SessionID       string       `json:"session_id"`
	Timestamp       string       `json:"timestamp"`
	Mode            string       `json:"mode"`
	Stage           string       `json:"stage"`
	CandidateIDHash string       `json:"candidate_id_hash,omitempty"`
	TechStack       []string     `json:"tech_stack"`
	MessageCount    int          `json:"message_count"`
	SkippedFields   []string     `json:"skipped_fields,omitempty"`
	Transcript      []ai.Message `json:"transcript"`
}

// Save writes both records for the session. It implements intake.Persister.
func (s *Store) Save(sessionID string, c *intake.CandidateContext, transcript []ai.Message, mode intake.PersistMode) error {
	if c == nil {
		return fmt.Errorf("candidate context is required")
	}

	profile, err := decodeProfile(c)
	if err != nil {
		return err
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)

	candidate := candidateRecord{
		SessionID: sessionID,
		Timestamp: timestamp,
		Mode:      string(mode),
		Stage:     string(c.Stage),
		Candidate: profile,
		TechStack: c.TechStack,
		Questions: c.Questions,
	}
	if err := s.writeJSON(filepath.Join(s.dir, candidatesDir, sessionID+".json"), candidate); err != nil {
		return err
	}

	session := sessionRecord{
		SessionID:       sessionID,
		Timestamp:       timestamp,
		Mode:            string(mode),
		Stage:           string(c.Stage),
		CandidateIDHash: hashValue(profile.Email),
		TechStack:       c.TechStack,
		MessageCount:    len(transcript),
		SkippedFields:   c.Skipped,
		Transcript:      redactTranscript(transcript, profile),
	}
	if err := s.writeJSON(filepath.Join(s.dir, sessionsDir, sessionID+"_session.json"), session); err != nil {
		return err
	}

	s.logger.Debug("session persisted",
		zap.String("session_id", sessionID),
		zap.String("mode", string(mode)),
	)

	return nil
}

// decodeProfile converts the generic field map into the typed profile record.
func decodeProfile(c *intake.CandidateContext) (Profile, error) {
	raw := make(map[string]any, len(c.Fields))
	for field, value := range c.Fields {
		raw[string(field)] = value
	}

	var profile Profile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &profile,
		TagName: "json",
	})
	if err != nil {
		return profile, fmt.Errorf("building profile decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return profile, fmt.Errorf("decoding candidate fields: %w", err)
	}

	return profile, nil
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s\-().]{5,17}\d`)
)

// redactTranscript strips PII from the transcript copy stored in the session
// log: known field values, plus anything shaped like an email or phone number
// the extractor may have normalised away.
func redactTranscript(transcript []ai.Message, profile Profile) []ai.Message {
	redacted := make([]ai.Message, 0, len(transcript))
	for _, msg := range transcript {
		content := msg.Content
		for _, sensitive := range []string{profile.Email, profile.Phone} {
			if sensitive != "" {
				content = strings.ReplaceAll(content, sensitive, redactionMarker)
			}
		}
		content = emailRe.ReplaceAllString(content, redactionMarker)
		content = phoneRe.ReplaceAllStringFunc(content, redactPhoneMatch)
		redacted = append(redacted, ai.Message{Role: msg.Role, Content: content})
	}
	return redacted
}

// redactPhoneMatch redacts only matches with enough digits to be a real
// number, leaving short figures like "4 years" untouched.
func redactPhoneMatch(match string) string {
	digits := 0
	for _, r := range match {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits >= 7 {
		return redactionMarker
	}
	return match
}

func hashValue(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}

func (s *Store) writeJSON(path string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}

	return nil
}
