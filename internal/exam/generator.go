package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const defaultMark = 10

// Generator orchestrates retrieval -> prompt -> LLM -> parse for exam
// question generation.
type Generator struct {
	llm      TextGenerator
	material MaterialQuerier
}

func NewGenerator(llm TextGenerator, material MaterialQuerier) *Generator {
	return &Generator{llm: llm, material: material}
}

func (g *Generator) Generate(ctx context.Context, req QuestionRequest) (*GenerateResponse, error) {
	if err := validateQuestionRequest(req); err != nil {
		return nil, err
	}
	if req.Mark <= 0 {
		req.Mark = defaultMark
	}
	req.LLMConfig = req.LLMConfig.withDefaults()

	counts := distributeCounts(req.NumQuestions, len(req.QuestionTypes))

	resp := &GenerateResponse{
		Questions:  []GeneratedQuestion{},
		TypeCounts: make(map[QuestionType]int, len(req.QuestionTypes)),
	}

	for i, qt := range req.QuestionTypes {
		resp.TypeCounts[qt] = counts[i]
		if counts[i] == 0 {
			continue
		}

		questions, err := g.generateByType(ctx, req, qt, counts[i])
		if err != nil {
			return nil, err
		}
		resp.Questions = append(resp.Questions, questions...)
	}

	return resp, nil
}

func (g *Generator) generateByType(ctx context.Context, req QuestionRequest, qt QuestionType, count int) ([]GeneratedQuestion, error) {
	chunks, err := g.material.Query(ctx, req.CourseID, req.Subject)
	if err != nil {
		return nil, err
	}

	prompt := GenerationPrompt(GenerationPromptParams{
		Subject:           req.Subject,
		Type:              qt,
		Difficulty:        req.Difficulty,
		AdditionalContext: req.AdditionalContext,
		Count:             count,
		Context:           FormatContext(chunks),
		Mark:              req.Mark,
	})

	raw, err := g.llm.GenerateText(ctx, prompt, req.LLMConfig)
	if err != nil {
		return nil, err
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s generation: %v", ErrParse, qt, err)
	}

	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
		if questions[i].Type == "" {
			questions[i].Type = qt
		}
		if questions[i].Mark <= 0 {
			questions[i].Mark = req.Mark
		}
	}

	return questions, nil
}

func parseQuestions(raw string) ([]GeneratedQuestion, error) {
	cleaned := StripJSONFence(raw)

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(cleaned), &questions); err == nil {
		return questions, nil
	}

	// Some models return a single object instead of a one-element array.
	var single GeneratedQuestion
	if err := json.Unmarshal([]byte(cleaned), &single); err != nil {
		return nil, err
	}
	return []GeneratedQuestion{single}, nil
}

// StripJSONFence removes a surrounding markdown code fence, which most
// models add even when told not to.
func StripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// distributeCounts splits total across n types round-robin: earlier
// types receive the remainder, nothing is dropped.
func distributeCounts(total, n int) []int {
	counts := make([]int, n)
	for i := range counts {
		counts[i] = total / n
	}
	for i := 0; i < total%n; i++ {
		counts[i]++
	}
	return counts
}

func validateQuestionRequest(req QuestionRequest) error {
	if strings.TrimSpace(req.CourseID) == "" {
		return fmt.Errorf("%w: course_id is required", ErrValidation)
	}
	if strings.TrimSpace(req.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	switch req.Difficulty {
	case "easy", "medium", "hard":
	default:
		return fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrValidation)
	}
	if len(req.QuestionTypes) == 0 {
		return fmt.Errorf("%w: at least one question type is required", ErrValidation)
	}
	for _, qt := range req.QuestionTypes {
		switch qt {
		case QuestionMCQ, QuestionFillBlank, QuestionEssay:
		default:
			return fmt.Errorf("%w: unknown question type %q", ErrValidation, qt)
		}
	}
	if req.NumQuestions < 1 || req.NumQuestions > 100 {
		return fmt.Errorf("%w: num_questions must be between 1 and 100", ErrValidation)
	}
	return nil
}
