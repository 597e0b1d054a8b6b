package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	wl "github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"
)

// Per-type emphasis injected into the grading prompt.
var gradingCriteria = map[QuestionType]string{
	QuestionFillBlank: "Evaluate the fill-in-the-blank answer on how well it answers the question and on meaning accuracy.",
	QuestionEssay:     "Focus on conceptual understanding, completeness of explanation, accuracy of information, and logical reasoning.",
}

// GradingService orchestrates retrieval -> prompt -> LLM -> parse for
// answer grading.
type GradingService struct {
	llm      TextGenerator
	material MaterialQuerier

	// BatchConcurrency bounds in-flight items in GradeBatch.
	BatchConcurrency int
}

func NewGradingService(llm TextGenerator, material MaterialQuerier) *GradingService {
	return &GradingService{llm: llm, material: material, BatchConcurrency: 4}
}

func (s *GradingService) Grade(ctx context.Context, req GradingRequest) (*GradingResult, error) {
	if req.Type == QuestionMCQ {
		return nil, fmt.Errorf("%w: mcq questions don't need LLM grading", ErrValidation)
	}
	criteria, ok := gradingCriteria[req.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an LLM-gradable question type", ErrValidation, req.Type)
	}
	if req.Points <= 0 {
		req.Points = defaultMark
	}
	req.LLMConfig = req.LLMConfig.withDefaults()

	chunks, err := s.material.Query(ctx, req.CourseID, req.Question)
	if err != nil {
		return nil, err
	}

	prompt := GradingPrompt(GradingPromptParams{
		QuestionID:      req.ID,
		Type:            req.Type,
		QuestionText:    req.Question,
		ExpectedAnswer:  req.ExpectedAnswer,
		StudentAnswer:   req.StudentAnswer,
		MaxPoints:       req.Points,
		GradingCriteria: criteria,
		AnswerLanguage:  detectLang(req.StudentAnswer),
		Context:         FormatContext(chunks),
	})

	raw, err := s.llm.GenerateText(ctx, prompt, req.LLMConfig)
	if err != nil {
		return nil, err
	}

	return parseGradingResult(raw, req)
}

// GradeBatch grades every request independently with bounded
// concurrency. A failure on one item never aborts the batch; each slot
// carries either a result or a tagged error, in request order.
func (s *GradingService) GradeBatch(ctx context.Context, reqs []GradingRequest) []BatchGradingItem {
	items := make([]BatchGradingItem, len(reqs))

	limit := s.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, req := range reqs {
		g.Go(func() error {
			result, err := s.Grade(gctx, req)
			if err != nil {
				items[i] = BatchGradingItem{Error: &BatchItemError{
					Kind:    ErrorKind(err),
					Message: err.Error(),
				}}
				return nil
			}
			items[i] = BatchGradingItem{Result: result}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures live in items

	return items
}

func parseGradingResult(raw string, req GradingRequest) (*GradingResult, error) {
	cleaned := StripJSONFence(raw)

	var result GradingResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: grading response: %v", ErrParse, err)
	}

	maxScore := float64(req.Points)
	if result.Score < 0 || result.Score > maxScore {
		return nil, fmt.Errorf("%w: score %.2f out of range [0, %.0f]", ErrParse, result.Score, maxScore)
	}

	// The model's arithmetic is not trusted.
	result.MaxScore = maxScore
	result.Percentage = result.Score / maxScore * 100
	if result.QuestionID == "" {
		result.QuestionID = req.ID
	}

	return &result, nil
}

func detectLang(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	info := wl.Detect(s)
	if !info.IsReliable() {
		return ""
	}
	return wl.LangToString(info.Lang)
}
