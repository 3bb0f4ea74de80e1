package intake

import "testing"

const fiveQuestionBlock = `Here are your technical questions:

Question 1: How does Python manage memory, and what role does the GC play?
Question 2: Explain the difference between Django function-based and class-based views.
Question 3: When would you choose a PostgreSQL partial index?
Question 4: What is the difference between a Docker image and a container?
Question 5: How would you debug a slow SQL query in production?

Please go ahead and answer Question 1 when you're ready!`

func TestScanDetectsQuestionBlock(t *testing.T) {
	result := Scan(StageTechnicalQuestions, fiveQuestionBlock)

	if result.Signal != SignalQuestionsGenerated {
		t.Fatalf("expected questions-generated signal, got %v", result.Signal)
	}

	if len(result.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d: %v", len(result.Questions), result.Questions)
	}

	if result.Questions[0] != "How does Python manage memory, and what role does the GC play?" {
		t.Fatalf("unexpected first question: %q", result.Questions[0])
	}

	// Trailing prose after the last marker belongs to question 5 only up to
	// cleanup; make sure numbering text itself is stripped.
	if result.Questions[2] != "When would you choose a PostgreSQL partial index?" {
		t.Fatalf("unexpected third question: %q", result.Questions[2])
	}
}

func TestScanBoldMarkers(t *testing.T) {
	response := "**Question 1:** Explain goroutine scheduling in detail.\n" +
		"**Question 2:** What is a channel deadlock and how do you avoid it?\n" +
		"**Question 3:** Describe how slices grow internally."

	result := Scan(StageTechnicalQuestions, response)

	if result.Signal != SignalQuestionsGenerated {
		t.Fatalf("expected signal for bold markers, got %v", result.Signal)
	}

	if result.Questions[0] != "Explain goroutine scheduling in detail." {
		t.Fatalf("unexpected question text: %q", result.Questions[0])
	}
}

func TestScanNumberedListFallback(t *testing.T) {
	response := `Here you go:
1. Explain how Python decorators work under the hood.
2. What is the difference between INNER and LEFT JOIN?
3. How do Docker volumes differ from bind mounts?
4. Describe the CAP theorem with an example.`

	result := Scan(StageTechnicalQuestions, response)

	if result.Signal != SignalQuestionsGenerated {
		t.Fatalf("expected signal from numbered list, got %v", result.Signal)
	}

	if len(result.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(result.Questions))
	}
}

func TestScanMalformedBlockReportsPartialFind(t *testing.T) {
	response := "Question 1: Explain how Python decorators work under the hood.\n" +
		"That's all for now."

	result := Scan(StageTechnicalQuestions, response)

	if result.Signal != SignalNone {
		t.Fatalf("expected no signal for a single question, got %v", result.Signal)
	}

	if len(result.Questions) != 1 {
		t.Fatalf("expected the partial find to be reported, got %d", len(result.Questions))
	}
}

func TestScanCapsAtFiveQuestions(t *testing.T) {
	response := ""
	for _, q := range []string{
		"Question 1: Explain how Python decorators work internally.",
		"Question 2: What is a PostgreSQL partial index used for?",
		"Question 3: How do Docker volumes differ from bind mounts?",
		"Question 4: Describe the CAP theorem with a real example.",
		"Question 5: What does eventual consistency mean in practice?",
		"Question 6: How would you design a rate limiter service?",
	} {
		response += q + "\n"
	}

	result := Scan(StageTechnicalQuestions, response)

	if len(result.Questions) != 5 {
		t.Fatalf("expected cap at 5 questions, got %d", len(result.Questions))
	}
}

func TestScanClosingPhrase(t *testing.T) {
	result := Scan(StageClosing, "Thank you for your time today. Best of luck with the process!")
	if result.Signal != SignalClosingDetected {
		t.Fatalf("expected closing signal, got %v", result.Signal)
	}

	result = Scan(StageClosing, "Could you clarify your last answer?")
	if result.Signal != SignalNone {
		t.Fatalf("expected no signal, got %v", result.Signal)
	}
}

func TestScanIgnoresQuestionsOutsideQuestionStage(t *testing.T) {
	result := Scan(StageCollectingEmail, fiveQuestionBlock)
	if result.Signal != SignalNone || len(result.Questions) != 0 {
		t.Fatalf("expected inert scan outside question stage, got %+v", result)
	}
}
