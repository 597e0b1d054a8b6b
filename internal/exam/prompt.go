package exam

import (
	"fmt"
	"strings"
)

// Placeholder used whenever an optional value is absent, so the model
// never sees an unfilled field marker.
const noneSupplied = "none supplied"

const questionFormatInstructions = `Format your response as a JSON array where each element matches this schema:
{
  "id": "string",
  "type": "mcq | fill-in-the-blank | essay",
  "question": "string",
  "options": [{"option": "string", "is_correct": true}],  // mcq only
  "expected_answer": "string",
  "mark": 10,
  "metadata": {}
}
Return ONLY the JSON array, with no commentary around it.`

const gradingFormatInstructions = `Return your evaluation in this exact JSON format:
{
  "question_id": "string",
  "score": 0,
  "max_score": 0,
  "percentage": 0,
  "feedback": "string",
  "detailed_analysis": {"strengths": [], "improvements": []}
}
Return ONLY the JSON object, with no commentary around it.`

// GenerationPromptParams holds every placeholder of the
// question-generation template.
type GenerationPromptParams struct {
	Subject           string
	Type              QuestionType
	Difficulty        string
	AdditionalContext string
	Count             int
	Context           string // retrieved course material, already formatted
	Mark              int
}

// GenerationPrompt assembles the question-generation prompt. Output is
// fully determined by the params: same input, same string.
func GenerationPrompt(p GenerationPromptParams) string {
	var b strings.Builder

	b.WriteString("You are a university exam question generator.\n")
	fmt.Fprintf(&b, "Generate %d %s questions on the subject %q with comprehensive coverage of the course material below.\n", p.Count, p.Type, p.Subject)
	fmt.Fprintf(&b, "Difficulty: %s\n", orNone(p.Difficulty))
	fmt.Fprintf(&b, "Additional context: %s\n", orNone(p.AdditionalContext))
	fmt.Fprintf(&b, "Course material: %s\n", orNone(p.Context))
	b.WriteString("Generate questions that are clear, concise, and suitable for university-level students.\n")
	b.WriteString("Generate an expected answer for each question.\n")
	fmt.Fprintf(&b, "Assign %d marks to each question.\n", p.Mark)
	b.WriteString(questionFormatInstructions)

	return b.String()
}

// GradingPromptParams holds every placeholder of the grading template.
type GradingPromptParams struct {
	QuestionID      string
	Type            QuestionType
	QuestionText    string
	ExpectedAnswer  string
	StudentAnswer   string
	MaxPoints       int
	GradingCriteria string
	AnswerLanguage  string
	Context         string
}

// GradingPrompt assembles the answer-grading prompt.
func GradingPrompt(p GradingPromptParams) string {
	var b strings.Builder

	b.WriteString("You are a university exam answer grader.\n")
	fmt.Fprintf(&b, "Evaluate a student's answer to a university-level %s question for technical correctness, using the expected answer, the grading criteria and the course material.\n", p.Type)
	fmt.Fprintf(&b, "Question ID: %s\n", orNone(p.QuestionID))
	fmt.Fprintf(&b, "Question: %s\n", orNone(p.QuestionText))
	fmt.Fprintf(&b, "Expected answer: %s\n", orNone(p.ExpectedAnswer))
	fmt.Fprintf(&b, "Student answer: %s\n", orNone(p.StudentAnswer))
	fmt.Fprintf(&b, "Student answer language: %s\n", orNone(p.AnswerLanguage))
	fmt.Fprintf(&b, "Maximum points: %d\n", p.MaxPoints)
	fmt.Fprintf(&b, "Grading criteria: %s\n", orNone(p.GradingCriteria))
	fmt.Fprintf(&b, "Provide a score between 0 and %d.\n", p.MaxPoints)
	b.WriteString("Be strictly objective, focus on technical substance and ignore grammatical mistakes where possible; award less than 50% when the answer is not technically correct.\n")
	fmt.Fprintf(&b, "Course material: %s\n", orNone(p.Context))
	b.WriteString(gradingFormatInstructions)

	return b.String()
}

// FormatContext renders retrieved chunks the way the model receives
// them. Empty input means no course material was found.
func FormatContext(chunks []RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	const maxChunkChars = 1200

	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n[DOC %d] source=%s chunk=%d\n", i+1, c.PDFURL, c.ChunkIndex)
		b.WriteString(trimBody(c.Content, maxChunkChars))
		b.WriteString("\n----\n")
	}
	return b.String()
}

func orNone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return noneSupplied
	}
	return s
}

func trimBody(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
