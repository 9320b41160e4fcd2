package metrics

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TokenEstimator approximates usage when the model provider does not report it.
type TokenEstimator interface {
	Estimate(prompt, completion string) TokenUsage
}

// TiktokenEstimator counts tokens with a BPE encoding. The encoding is loaded
// lazily on first use; when it cannot be loaded the estimator falls back to a
// four-characters-per-token heuristic.
type TiktokenEstimator struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

// NewTiktokenEstimator builds an estimator for the given encoding name.
func NewTiktokenEstimator(encoding string) *TiktokenEstimator {
	if strings.TrimSpace(encoding) == "" {
		encoding = defaultEncoding
	}
	return &TiktokenEstimator{encoding: encoding}
}

// Estimate implements TokenEstimator.
func (e *TiktokenEstimator) Estimate(prompt, completion string) TokenUsage {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err == nil {
			e.enc = enc
		}
	})
	promptTokens := e.count(prompt)
	completionTokens := e.count(completion)
	return TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Estimated:        true,
	}
}

func (e *TiktokenEstimator) count(text string) int {
	if text == "" {
		return 0
	}
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	return heuristicCount(text)
}

func heuristicCount(text string) int {
	runes := utf8.RuneCountInString(text)
	n := runes / 4
	if runes%4 != 0 {
		n++
	}
	return n
}

var _ TokenEstimator = (*TiktokenEstimator)(nil)
