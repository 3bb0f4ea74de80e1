package intake

import "testing"

func TestIsExit(t *testing.T) {
	machine := NewStageMachine(0, nil)

	cases := []struct {
		input string
		want  bool
	}{
		{"bye", true},
		{"BYE", true},
		{"  exit  ", true},
		{"done", true},
		{"goodbye", true},
		{"bye bye for now", false},
		{"my name is Bye", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := machine.IsExit(tc.input); got != tc.want {
			t.Fatalf("IsExit(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestNextAdvancesWhenFieldSet(t *testing.T) {
	machine := NewStageMachine(0, nil)

	c := NewContext()
	c.Stage = StageCollectingName
	c.Set(FieldName, "Asha Verma")

	if got := machine.Next(c); got != StageCollectingEmail {
		t.Fatalf("expected %s, got %s", StageCollectingEmail, got)
	}

	if c.ReAsks != 0 {
		t.Fatalf("expected re-ask counter reset, got %d", c.ReAsks)
	}
}

func TestNextSkipsAlreadySatisfiedStages(t *testing.T) {
	machine := NewStageMachine(0, nil)

	c := NewContext()
	c.Stage = StageCollectingEmail
	c.Set(FieldName, "Asha Verma")
	c.Set(FieldEmail, "asha@example.com")
	c.Set(FieldPhone, "9876543210")

	if got := machine.Next(c); got != StageCollectingExp {
		t.Fatalf("expected %s, got %s", StageCollectingExp, got)
	}
}

func TestNextStaysAndCountsReAsks(t *testing.T) {
	machine := NewStageMachine(3, nil)

	c := NewContext()
	c.Stage = StageCollectingEmail
	c.Set(FieldName, "Asha Verma")

	if got := machine.Next(c); got != StageCollectingEmail {
		t.Fatalf("expected to stay at %s, got %s", StageCollectingEmail, got)
	}
	if c.ReAsks != 1 {
		t.Fatalf("expected 1 re-ask, got %d", c.ReAsks)
	}

	if got := machine.Next(c); got != StageCollectingEmail {
		t.Fatalf("expected to stay at %s, got %s", StageCollectingEmail, got)
	}

	// Third failed attempt exhausts the budget and force-advances.
	got := machine.Next(c)
	if got != StageCollectingPhone {
		t.Fatalf("expected force-advance to %s, got %s", StageCollectingPhone, got)
	}

	if len(c.Skipped) != 1 || c.Skipped[0] != string(FieldEmail) {
		t.Fatalf("expected email marked skipped, got %v", c.Skipped)
	}

	if c.ReAsks != 0 {
		t.Fatalf("expected re-ask counter reset after skip, got %d", c.ReAsks)
	}
}

func TestNextGreetingAdvancesToFirstMissingField(t *testing.T) {
	machine := NewStageMachine(0, nil)

	c := NewContext()
	if got := machine.Next(c); got != StageCollectingName {
		t.Fatalf("expected %s, got %s", StageCollectingName, got)
	}

	c = NewContext()
	c.Set(FieldName, "Asha Verma")
	if got := machine.Next(c); got != StageCollectingEmail {
		t.Fatalf("expected %s, got %s", StageCollectingEmail, got)
	}
}

func TestNextTechStackStage(t *testing.T) {
	machine := NewStageMachine(0, nil)

	c := NewContext()
	c.Stage = StageCollectingTechStack
	for _, f := range fieldOrder {
		c.Set(f, "x")
	}

	if got := machine.Next(c); got != StageCollectingTechStack {
		t.Fatalf("expected to stay collecting tech stack, got %s", got)
	}

	c.AddTech("Python", "Django")
	c.ReAsks = 0
	if got := machine.Next(c); got != StageTechnicalQuestions {
		t.Fatalf("expected %s, got %s", StageTechnicalQuestions, got)
	}
}

func TestNextTechnicalQuestionsWaitsForAnswers(t *testing.T) {
	machine := NewStageMachine(0, nil)

	c := NewContext()
	c.Stage = StageTechnicalQuestions

	if got := machine.Next(c); got != StageTechnicalQuestions {
		t.Fatalf("expected to stay without questions, got %s", got)
	}

	c.SetQuestions([]string{"What is a goroutine?", "Explain channels.", "What does defer do?"})

	c.MarkAnswered()
	c.MarkAnswered()
	if got := machine.Next(c); got != StageTechnicalQuestions {
		t.Fatalf("expected to stay with 2/3 answered, got %s", got)
	}

	c.MarkAnswered()
	if got := machine.Next(c); got != StageClosing {
		t.Fatalf("expected %s with all answered, got %s", StageClosing, got)
	}
}

func TestNextClosingIsOneTurn(t *testing.T) {
	machine := NewStageMachine(0, nil)

	c := NewContext()
	c.Stage = StageClosing

	if got := machine.Next(c); got != StageClosed {
		t.Fatalf("expected %s, got %s", StageClosed, got)
	}
}

func TestStageNeverRegresses(t *testing.T) {
	machine := NewStageMachine(1, nil)

	c := NewContext()
	previous := c.Stage.Index()

	// Drive an uncooperative session: no field is ever extracted, so every
	// collecting stage runs out its re-ask budget and force-advances. The
	// question phase is completed manually since it cannot be skipped.
	for i := 0; i < 30; i++ {
		if c.Stage == StageTechnicalQuestions && len(c.Questions) == 0 {
			c.SetQuestions([]string{"Why use indexes?", "Explain joins briefly.", "What is normalisation?"})
			for c.MarkAnswered() {
			}
		}

		next := machine.Next(c)
		if next == StageExited {
			t.Fatalf("unexpected exit transition")
		}
		if next.Index() < previous {
			t.Fatalf("stage regressed from index %d to %s", previous, next)
		}
		previous = next.Index()
		c.Stage = next
		if c.Stage == StageClosed {
			return
		}
	}

	t.Fatalf("session never reached a terminal stage, stuck at %s", c.Stage)
}
