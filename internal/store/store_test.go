package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/intake"

	"go.uber.org/zap"
)

func testContext() *intake.CandidateContext {
	c := intake.NewContext()
	c.Set(intake.FieldName, "Asha Verma")
	c.Set(intake.FieldEmail, "asha@example.com")
	c.Set(intake.FieldPhone, "+919876543210")
	c.Set(intake.FieldExperience, "4")
	c.Set(intake.FieldRole, "Backend Engineer")
	c.AddTech("Python")
	c.AddTech("Django")
	c.Stage = intake.StageCollectingLocation
	return c
}

func testTranscript() []ai.Message {
	return []ai.Message{
		{Role: ai.RoleAssistant, Content: "Hello! What's your email address?"},
		{Role: ai.RoleUser, Content: "It's asha@example.com and my number is +91 98765 43210."},
		{Role: ai.RoleAssistant, Content: "Thanks Asha! How many years of experience do you have?"},
		{Role: ai.RoleUser, Content: "I have 4 years of experience."},
	}
}

func saveTestSession(t *testing.T, mode intake.PersistMode) (string, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	if err := store.Save("ts_abc123def456", testContext(), testTranscript(), mode); err != nil {
		t.Fatalf("saving session: %v", err)
	}

	candidatePath := filepath.Join(dir, "candidates", "ts_abc123def456.json")
	sessionPath := filepath.Join(dir, "sessions", "ts_abc123def456_session.json")
	return candidatePath, sessionPath
}

func readJSON(t *testing.T, path string, out any) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return data
}

func TestSaveWritesFullProfileToCandidatesFile(t *testing.T) {
	candidatePath, _ := saveTestSession(t, intake.PersistInProgress)

	var record candidateRecord
	readJSON(t, candidatePath, &record)

	if record.SessionID != "ts_abc123def456" {
		t.Fatalf("unexpected session id: %q", record.SessionID)
	}

	if record.Mode != "in_progress" {
		t.Fatalf("unexpected mode: %q", record.Mode)
	}

	if record.Candidate.Email != "asha@example.com" {
		t.Fatalf("candidates file must keep the clear email, got %q", record.Candidate.Email)
	}

	if record.Candidate.FullName != "Asha Verma" || record.Candidate.Phone != "+919876543210" {
		t.Fatalf("unexpected profile: %+v", record.Candidate)
	}

	if len(record.TechStack) != 2 {
		t.Fatalf("unexpected tech stack: %v", record.TechStack)
	}
}

func TestSaveRedactsSessionTranscript(t *testing.T) {
	_, sessionPath := saveTestSession(t, intake.PersistFinal)

	var record sessionRecord
	raw := readJSON(t, sessionPath, &record)

	content := string(raw)
	for _, leaked := range []string{"asha@example.com", "9876543210", "98765 43210"} {
		if strings.Contains(content, leaked) {
			t.Fatalf("session log leaked %q:\n%s", leaked, content)
		}
	}

	if !strings.Contains(content, redactionMarker) {
		t.Fatalf("expected redaction markers in transcript:\n%s", content)
	}

	// Short figures are not phone numbers and must survive redaction.
	if !strings.Contains(content, "4 years of experience") {
		t.Fatalf("over-redacted transcript:\n%s", content)
	}

	sum := sha256.Sum256([]byte("asha@example.com"))
	if record.CandidateIDHash != fmt.Sprintf("%x", sum) {
		t.Fatalf("unexpected candidate hash: %q", record.CandidateIDHash)
	}

	if record.MessageCount != 4 || len(record.Transcript) != 4 {
		t.Fatalf("expected 4 messages, got count=%d transcript=%d", record.MessageCount, len(record.Transcript))
	}

	if record.Mode != "final" {
		t.Fatalf("unexpected mode: %q", record.Mode)
	}
}

func TestSaveRecordsSkippedFields(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	c := testContext()
	c.Skipped = []string{"phone", "location"}

	if err := store.Save("ts_000000000000", c, nil, intake.PersistFinal); err != nil {
		t.Fatalf("saving session: %v", err)
	}

	var record sessionRecord
	readJSON(t, filepath.Join(dir, "sessions", "ts_000000000000_session.json"), &record)

	if len(record.SkippedFields) != 2 || record.SkippedFields[0] != "phone" {
		t.Fatalf("unexpected skipped fields: %v", record.SkippedFields)
	}
}

func TestNewRequiresDirectory(t *testing.T) {
	if _, err := New("  ", zap.NewNop()); err == nil {
		t.Fatal("expected an error for a blank directory")
	}
}

func TestNewCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir, nil); err != nil {
		t.Fatalf("creating store: %v", err)
	}

	for _, sub := range []string{"candidates", "sessions"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !info.IsDir() {
			t.Fatalf("missing %s directory: %v", sub, err)
		}
	}
}
