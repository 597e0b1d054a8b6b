package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestClassifyGenAIErr(t *testing.T) {
	isTransient := func(err error) bool {
		var te *transientError
		return errors.As(err, &te)
	}

	assert.True(t, isTransient(classifyGenAIErr(genai.APIError{Code: 429, Message: "rate limited"})))
	assert.True(t, isTransient(classifyGenAIErr(genai.APIError{Code: 503, Message: "overloaded"})))
	assert.True(t, isTransient(classifyGenAIErr(&genai.APIError{Code: 500, Message: "internal"})))

	assert.False(t, isTransient(classifyGenAIErr(genai.APIError{Code: 400, Message: "bad request"})))
	assert.False(t, isTransient(classifyGenAIErr(&genai.APIError{Code: 403, Message: "forbidden"})))

	// transport failure without an API error is retried
	assert.True(t, isTransient(classifyGenAIErr(fmt.Errorf("connection reset"))))
}
