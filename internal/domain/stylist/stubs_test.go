package stylist

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/yanqian/stylecast/internal/infra/llm/gemini"
	"github.com/yanqian/stylecast/pkg/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubGenerativeClient struct {
	calls    int
	lastReq  gemini.GenerateContentRequest
	respond  func(req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error)
	response gemini.GenerateContentResponse
	err      error
}

func (s *stubGenerativeClient) GenerateContent(_ context.Context, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
	s.calls++
	s.lastReq = req
	if s.respond != nil {
		return s.respond(req)
	}
	return s.response, s.err
}

func textResponse(text string) gemini.GenerateContentResponse {
	return gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{Content: &gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}}}},
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func userPrompt(req gemini.GenerateContentRequest) string {
	var b strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ruleEchoClient answers with an outfit that honors whichever rules the
// prompt lists, the way a compliant model would.
func ruleEchoClient() *stubGenerativeClient {
	return &stubGenerativeClient{respond: func(req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
		prompt := userPrompt(req)
		rec := Recommendation{
			Headline:     "Easy City Layers",
			Top:          "Cotton shirt",
			Bottom:       "Chinos",
			Footwear:     "Leather sneakers",
			Accessories:  []string{"Watch", "Tote bag"},
			FoodItems:    []string{"Trail mix", "Water bottle"},
			Reasoning:    "Balanced for the day.",
			ColorPalette: "Navy and Cream",
		}
		if strings.Contains(prompt, "Rain protection required") {
			rec.Top = "Hooded raincoat over a cotton shirt"
		}
		if strings.Contains(prompt, "Warmth and comfort first") {
			rec.Top = "Wool sweater with thermal layer"
			rec.Footwear = "Sturdy non-slip boots"
		}
		return textResponse(mustJSON(rec)), nil
	}}
}

type stubEstimator struct {
	calls int
}

func (s *stubEstimator) Estimate(prompt, completion string) metrics.TokenUsage {
	s.calls++
	return metrics.TokenUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7, Estimated: true}
}
