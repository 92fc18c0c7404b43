package interviewer

import (
	"strconv"
	"strings"
)

// Interview types
const (
	TypeBehavioral = "behavioral"
	TypeTechnical  = "technical"
	TypeMixed      = "mixed"
)

// InterviewTypes lists the accepted interview types
var InterviewTypes = []string{TypeBehavioral, TypeTechnical, TypeMixed}

// WrapUpLine closes a session that reached its turn budget
const WrapUpLine = "Thank you so much for your time! You've done really well. " +
	"Our team will be in touch soon. Do you have any questions for me?"

const systemPromptBase = `You are an experienced interviewer conducting a {interview_type} interview for a {role} position at {company}.

Your personality: {persona_description}

STRICT RULES:
1. Ask ONE question at a time. Never stack multiple questions.
2. Ask natural follow-up questions if the answer is vague or incomplete.
3. Keep your responses SHORT, max 2-3 sentences before asking your question.
4. After {max_turns} exchanges, wrap up the interview professionally.
5. Never give feedback during the interview.
6. Speak in a conversational, natural tone.

CURRENT INTERVIEW CONTEXT:
- Interview type: {interview_type}
- Company: {company}
- Role: {role}
- Candidate level: {experience_level}
- Turn number: {current_turn} of {max_turns}
`

var openingQuestions = map[string]string{
	TypeBehavioral: "Tell me about yourself and what brought you to apply for this role.",
	TypeTechnical:  "Could you start by walking me through your most significant technical project?",
	TypeMixed:      "Let's start with you. Tell me about yourself and your technical background.",
}

const sessionEndPrompt = `
The interview has concluded. Provide a comprehensive evaluation.

Return ONLY valid JSON in this exact format:
{
  "overall_score": <0-100>,
  "summary": "<2-3 sentence overall assessment>",
  "top_wins": [
    {"point": "<specific strength>", "example": "<what they said>"},
    {"point": "<specific strength>", "example": "<what they said>"},
    {"point": "<specific strength>", "example": "<what they said>"}
  ],
  "top_improvements": [
    {"point": "<area to improve>", "suggestion": "<concrete advice>"},
    {"point": "<area to improve>", "suggestion": "<concrete advice>"},
    {"point": "<area to improve>", "suggestion": "<concrete advice>"}
  ],
  "delivery_notes": "<feedback on speaking delivery>",
  "interview_ready": <true or false>
}
`

// IsInterviewType reports whether t is accepted
func IsInterviewType(t string) bool {
	_, ok := openingQuestions[t]
	return ok
}

// OpeningQuestion is the theme for the first question, behavioral by default
func OpeningQuestion(interviewType string) string {
	if q, ok := openingQuestions[interviewType]; ok {
		return q
	}
	return openingQuestions[TypeBehavioral]
}

// BuildSystemPrompt renders the persona prompt for one turn
func BuildSystemPrompt(persona Persona, req TurnRequest) string {
	return strings.NewReplacer(
		"{interview_type}", req.InterviewType,
		"{role}", req.Role,
		"{company}", persona.Company,
		"{persona_description}", persona.Description,
		"{experience_level}", req.ExperienceLevel,
		"{current_turn}", strconv.Itoa(req.CurrentTurn),
		"{max_turns}", strconv.Itoa(req.MaxTurns),
	).Replace(systemPromptBase)
}

func steeringMessage(interviewType string) string {
	return "Start the interview now. Your first question should be around: '" + OpeningQuestion(interviewType) + "'"
}

func evaluatorPrompt(persona Persona) string {
	return "You are an expert interview coach who just observed a full interview at " + persona.Company + ". " +
		"Analyze the candidate's performance from the conversation below."
}
