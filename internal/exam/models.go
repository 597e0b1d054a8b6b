package exam

// LLMProvider identifica qual backend de LLM atende a chamada.
// Já deixo tipado p/ evitar string solta no código.
type LLMProvider string

const (
	ProviderAnthropic     LLMProvider = "anthropic"
	ProviderOpenAI        LLMProvider = "openai"
	ProviderGemini        LLMProvider = "gemini"
	ProviderDeepSeek      LLMProvider = "deepseek"
	ProviderLocalOllama   LLMProvider = "local_ollama"
	ProviderLocalLlamaCPP LLMProvider = "local_llamacpp"
)

// SupportedLLMProviders lists every provider the text adapter can target.
var SupportedLLMProviders = []LLMProvider{
	ProviderAnthropic,
	ProviderOpenAI,
	ProviderGemini,
	ProviderDeepSeek,
	ProviderLocalOllama,
	ProviderLocalLlamaCPP,
}

// EmbeddingProvider selects the embedding backend. No fallback between
// the two: the caller picks one explicitly and the course pins it.
type EmbeddingProvider string

const (
	EmbeddingGemini      EmbeddingProvider = "gemini"
	EmbeddingLocalOllama EmbeddingProvider = "local_ollama"
)

var SupportedEmbeddingProviders = []EmbeddingProvider{
	EmbeddingGemini,
	EmbeddingLocalOllama,
}

type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionFillBlank QuestionType = "fill-in-the-blank"
	QuestionEssay     QuestionType = "essay"
)

// LLMConfig
// Immutable per request; fully determines which adapter and network
// target serve the call.
type LLMConfig struct {
	Provider    LLMProvider `json:"provider"`
	ModelName   string      `json:"model_name"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens"`
}

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 20000
)

// withDefaults fills the knobs a request may omit, so a provider never
// receives a zero token budget or zero temperature by accident.
func (c LLMConfig) withDefaults() LLMConfig {
	if c.Temperature <= 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	return c
}

type MCQOption struct {
	Option    string `json:"option"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionRequest
// Payload da API /generate-questions.
type QuestionRequest struct {
	CourseID          string         `json:"course_id"`
	Subject           string         `json:"subject"`
	Difficulty        string         `json:"difficulty"` // easy | medium | hard
	QuestionTypes     []QuestionType `json:"question_types"`
	NumQuestions      int            `json:"num_questions"`
	LLMConfig         LLMConfig      `json:"llm_config"`
	AdditionalContext string         `json:"additional_context,omitempty"`
	Mark              int            `json:"mark,omitempty"` // points per question, default 10
}

// GeneratedQuestion is parsed from the model's JSON output. Beyond the
// JSON shape itself nothing is validated; Options only apply to MCQ.
type GeneratedQuestion struct {
	ID             string         `json:"id"`
	Type           QuestionType   `json:"type"`
	Question       string         `json:"question"`
	Options        []MCQOption    `json:"options,omitempty"`
	ExpectedAnswer string         `json:"expected_answer,omitempty"`
	Mark           int            `json:"mark"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// GenerateResponse carries the questions plus the effective per-type
// counts, so remainder distribution is visible to the caller instead of
// questions silently going missing.
type GenerateResponse struct {
	Questions  []GeneratedQuestion  `json:"questions"`
	TypeCounts map[QuestionType]int `json:"type_counts"`
}

// GradingRequest
// Payload da API /grade-answer.
type GradingRequest struct {
	ID             string       `json:"id"`
	Question       string       `json:"question"`
	CourseID       string       `json:"course_id"`
	ExpectedAnswer string       `json:"expected_answer"`
	StudentAnswer  string       `json:"student_answer"`
	Type           QuestionType `json:"type"`
	Points         int          `json:"points,omitempty"` // default 10
	LLMConfig      LLMConfig    `json:"llm_config"`
}

type GradingResult struct {
	QuestionID       string         `json:"question_id"`
	Score            float64        `json:"score"`
	MaxScore         float64        `json:"max_score"`
	Percentage       float64        `json:"percentage"`
	Feedback         string         `json:"feedback"`
	DetailedAnalysis map[string]any `json:"detailed_analysis,omitempty"`
}

type BatchGradingRequest struct {
	Answers []GradingRequest `json:"answers"`
}

// BatchItemError is the per-item failure record in a batch response.
type BatchItemError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BatchGradingItem holds exactly one of Result or Error, in the
// position of the request that produced it.
type BatchGradingItem struct {
	Result *GradingResult  `json:"result,omitempty"`
	Error  *BatchItemError `json:"error,omitempty"`
}

// RetrievedChunk is one scored hit from the course material store.
type RetrievedChunk struct {
	Content    string  `json:"content"`
	PDFURL     string  `json:"pdf_url"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
}
