package intake

import (
	"fmt"
	"strings"

	_ "embed"
)

//go:embed base_prompt.md
var basePromptTemplate string

const defaultCompany = "TalentScout"

// Composer builds the full system instruction for the next completion call.
// Compose is a pure function of (stage, context): identical inputs always
// produce byte-identical prompt text.
type Composer struct {
	company string
}

// NewComposer creates a Composer branded for the given company name.
func NewComposer(company string) *Composer {
	if company = strings.TrimSpace(company); company == "" {
		company = defaultCompany
	}
	return &Composer{company: company}
}

// Compose combines the fixed role block, the stage-specific instruction block
// and the serialized context block into one system prompt.
func (p *Composer) Compose(stage Stage, c *CandidateContext) string {
	base := strings.TrimSpace(strings.ReplaceAll(basePromptTemplate, "{{COMPANY}}", p.company))

	return base + "\n\n" + p.stageInstructions(stage, c) + "\n\n" + contextBlock(c)
}

var fieldAskInstructions = map[Stage]string{
	StageCollectingName:     "Ask for their full name.",
	StageCollectingEmail:    "Ask for their email address.",
	StageCollectingPhone:    "Ask for their phone number (explain it's for scheduling interviews).",
	StageCollectingExp:      "Ask how many years of professional experience they have.",
	StageCollectingRole:     "Ask what position(s) they are interested in.",
	StageCollectingLocation: "Ask for their current city/location.",
}

func (p *Composer) stageInstructions(stage Stage, c *CandidateContext) string {
	switch stage {
	case StageGreeting:
		return "CURRENT STAGE: Greeting\n" +
			"Welcome the candidate and start collecting their full name.\n" +
			"If they have provided their name, acknowledge it warmly and ask for their email address next."

	case StageCollectingName, StageCollectingEmail, StageCollectingPhone,
		StageCollectingExp, StageCollectingRole, StageCollectingLocation:
		instruction := "CURRENT STAGE: Gathering Info\n" +
			"You are collecting candidate details one at a time.\n" +
			"Next action: " + fieldAskInstructions[stage] + "\n" +
			"Acknowledge any info they've already provided before asking the next question."
		if c.ReAsks > 0 {
			instruction += fmt.Sprintf("\nThe candidate's previous answer did not contain this detail (attempt %d). "+
				"Gently clarify what you need and give a short example of a valid answer.", c.ReAsks+1)
		}
		return instruction

	case StageCollectingTechStack:
		return "CURRENT STAGE: Tech Stack Declaration\n" +
			"Ask the candidate to list their full tech stack: programming languages, frameworks, databases, DevOps tools and cloud platforms.\n" +
			"If they've provided a list, summarise what you heard and confirm it with them.\n" +
			"Do NOT generate technical questions yet."

	case StageTechnicalQuestions:
		if len(c.Questions) == 0 {
			return "CURRENT STAGE: Technical Questions - GENERATE NOW\n" +
				"The candidate's tech stack is: " + techList(c) + "\n\n" +
				"Generate 3-5 technical interview questions covering exactly their declared stack. Rules:\n" +
				"- Questions must be relevant to the specific technologies listed.\n" +
				"- Mix difficulty: 1-2 foundational, 1-2 intermediate, 1 advanced.\n" +
				"- Questions must be open-ended (not yes/no).\n" +
				"- Number them clearly: \"Question 1:\", \"Question 2:\", and so on.\n" +
				"- After listing ALL questions, invite the candidate to answer Question 1."
		}

		total := len(c.Questions)
		answered := c.AnsweredCount()
		if answered < total {
			return fmt.Sprintf("CURRENT STAGE: Technical Questions - IN PROGRESS\n"+
				"Questions generated: %d. Answered so far: %d. Remaining: %d.\n"+
				"Acknowledge the candidate's answer briefly and constructively, then prompt them to answer Question %d.\n"+
				"Do NOT re-ask questions they have already answered.", total, answered, total-answered, answered+1)
		}

		return "CURRENT STAGE: Technical Questions - COMPLETE\n" +
			"All technical questions have been answered. Thank the candidate for their thoughtful answers,\n" +
			"summarise what was collected (name, desired position, tech stack), explain the next steps\n" +
			"(recruiter review within 3-5 business days), and ask if they have any final questions."

	case StageClosing:
		return "CURRENT STAGE: Closing\n" +
			"Wrap up the conversation gracefully. Answer any final questions about the process.\n" +
			"Remind the candidate they can type 'exit' or 'bye' to end the session. Keep it warm and encouraging."

	default:
		return "Help the candidate complete their hiring screening."
	}
}

var fieldLabels = map[Field]string{
	FieldName:       "Full Name",
	FieldEmail:      "Email",
	FieldPhone:      "Phone",
	FieldExperience: "Years of Experience",
	FieldRole:       "Desired Position",
	FieldLocation:   "Location",
}

// contextBlock serializes every known fact so the model never re-asks for
// data it already has. Field iteration follows the canonical order to keep
// the output deterministic.
func contextBlock(c *CandidateContext) string {
	var b strings.Builder
	b.WriteString("CANDIDATE CONTEXT (already collected - do NOT re-ask for this):\n")

	for _, field := range fieldOrder {
		value := c.Get(field)
		if value == "" {
			value = "not yet provided"
		}
		fmt.Fprintf(&b, "- %s: %s\n", fieldLabels[field], value)
	}

	fmt.Fprintf(&b, "- Tech Stack: %s\n", techList(c))
	fmt.Fprintf(&b, "- Technical Questions Generated: %d\n", len(c.Questions))
	fmt.Fprintf(&b, "- Questions Answered: %d", c.AnsweredCount())

	return b.String()
}

func techList(c *CandidateContext) string {
	if len(c.TechStack) == 0 {
		return "not yet provided"
	}
	return strings.Join(c.TechStack, ", ")
}

// Greeting is the fixed opening message shown before the first user turn.
func (p *Composer) Greeting() string {
	return fmt.Sprintf("Welcome to the %s Hiring Assistant!\n\n"+
		"I'm here to help with your initial screening for technology positions. "+
		"Our conversation takes about 5-10 minutes and covers your basic information, "+
		"your tech stack, and a few technical questions tailored to it.\n\n"+
		"Everything you share is handled securely and only used for recruitment purposes.\n\n"+
		"To begin, could you please tell me your full name? "+
		"(Type 'exit' or 'bye' at any time to end the session.)", p.company)
}

// Farewell is the fixed closing message, personalised with the candidate's
// first name when known.
func (p *Composer) Farewell(c *CandidateContext) string {
	return fmt.Sprintf("Thank you, %s!\n\n"+
		"Your profile has been submitted to the %s team. You'll receive a confirmation email "+
		"within 24 hours, and a recruiter will review your profile within 3-5 business days. "+
		"If shortlisted, we'll reach out to schedule a detailed interview.\n\n"+
		"We appreciate your time and wish you the best of luck!", c.FirstName(), p.company)
}

// FallbackMessage is returned to the candidate when the completion service
// keeps failing; the stage does not advance so the conversation can resume.
const FallbackMessage = "I'm sorry, I'm having a temporary technical issue. " +
	"Could you please repeat that in a moment?"
