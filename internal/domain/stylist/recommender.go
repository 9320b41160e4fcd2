package stylist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/stylecast/internal/domain/weather"
	"github.com/yanqian/stylecast/internal/infra/llm/gemini"
	apperrors "github.com/yanqian/stylecast/pkg/errors"
	"github.com/yanqian/stylecast/pkg/metrics"
)

const (
	maxListItems = 3

	generationFailedMessage = "failed to generate recommendation"
)

// GenerativeClient is the subset of the Gemini adapter used by the stylist.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error)
}

// Recommender produces outfit recommendations.
type Recommender interface {
	Recommend(ctx context.Context, profile UserProfile, conditions weather.Conditions) (Recommendation, metrics.TokenUsage, error)
}

type recommender struct {
	cfg       Config
	client    GenerativeClient
	estimator metrics.TokenEstimator
	logger    *slog.Logger
}

// NewRecommender wires the recommendation generator. estimator may be nil.
func NewRecommender(cfg Config, client GenerativeClient, estimator metrics.TokenEstimator, logger *slog.Logger) Recommender {
	return &recommender{
		cfg:       cfg,
		client:    client,
		estimator: estimator,
		logger:    logger.With("component", "stylist.recommender"),
	}
}

func (r *recommender) Recommend(ctx context.Context, profile UserProfile, conditions weather.Conditions) (Recommendation, metrics.TokenUsage, error) {
	rules := ActiveRules(profile, conditions)
	prompt := buildUserPrompt(profile, conditions, rules)

	resp, err := r.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Model:             r.cfg.TextModel,
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{gemini.TextPart(systemInstruction)}},
		Contents:          []gemini.Content{{Role: "user", Parts: []gemini.Part{gemini.TextPart(prompt)}}},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:      gemini.Float32(r.cfg.Temperature),
			ResponseMimeType: "application/json",
			ResponseSchema:   recommendationSchema(),
		},
	})
	if err != nil {
		if gemini.IsCredentialError(err) {
			return Recommendation{}, metrics.TokenUsage{}, configurationError(err)
		}
		r.logger.Error("recommendation request failed", "error", err)
		return Recommendation{}, metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeGenerationFailed, generationFailedMessage, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		r.logger.Warn("recommendation response empty", "candidates", len(resp.Candidates))
		return Recommendation{}, metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeGenerationFailed, generationFailedMessage, errors.New("model returned no text"))
	}
	usage := r.usage(resp, systemInstruction+"\n"+prompt, text)

	rec, err := parseRecommendation(text)
	if err != nil {
		r.logger.Warn("recommendation response malformed", "error", err)
		return Recommendation{}, usage, apperrors.Wrap(apperrors.CodeGenerationFailed, generationFailedMessage, err)
	}

	if hasRule(rules, RuleWarmthFirst) && ignoresWarmth(rec) {
		r.logger.Warn("recommendation violates warmth rule", "age", profile.Age, "temperature", conditions.TemperatureCelsius)
		return Recommendation{}, usage, apperrors.Wrap(apperrors.CodeGenerationFailed, generationFailedMessage, errors.New("outfit ignores warmth-first rule"))
	}
	if hasRule(rules, RuleRainProtection) {
		var added bool
		if rec, added = enforceRainProtection(rec); added {
			r.logger.Info("rain protection added to recommendation", "weather_code", conditions.WeatherCode)
		}
	}

	r.logger.Info("recommendation generated",
		"city", profile.City,
		"rules", len(rules),
		"total_tokens", usage.TotalTokens,
		"estimated", usage.Estimated,
	)
	return rec, usage, nil
}

func (r *recommender) usage(resp gemini.GenerateContentResponse, prompt, completion string) metrics.TokenUsage {
	if meta := resp.UsageMetadata; meta != nil && meta.TotalTokenCount > 0 {
		return metrics.TokenUsage{
			PromptTokens:     meta.PromptTokenCount,
			CompletionTokens: meta.CandidatesTokenCount,
			TotalTokens:      meta.TotalTokenCount,
		}
	}
	if r.estimator == nil {
		return metrics.TokenUsage{}
	}
	return r.estimator.Estimate(prompt, completion)
}

func configurationError(err error) error {
	if errors.Is(err, gemini.ErrMissingAPIKey) {
		return apperrors.Wrap(apperrors.CodeConfiguration, err.Error(), err)
	}
	return apperrors.Wrap(apperrors.CodeConfiguration, "API Key was rejected by the AI service. Please check GEMINI_API_KEY.", err)
}

type recommendationWire struct {
	Headline     string   `json:"headline"`
	Top          string   `json:"top"`
	Bottom       string   `json:"bottom"`
	Footwear     string   `json:"footwear"`
	Accessories  []string `json:"accessories"`
	FoodItems    []string `json:"foodItems"`
	Reasoning    string   `json:"reasoning"`
	ColorPalette string   `json:"colorPalette"`
}

func parseRecommendation(raw string) (Recommendation, error) {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimPrefix(sanitized, "```")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.TrimSpace(sanitized)

	var wire recommendationWire
	if err := json.Unmarshal([]byte(sanitized), &wire); err != nil {
		return Recommendation{}, fmt.Errorf("decode recommendation: %w", err)
	}
	rec := Recommendation{
		Headline:     strings.TrimSpace(wire.Headline),
		Top:          strings.TrimSpace(wire.Top),
		Bottom:       strings.TrimSpace(wire.Bottom),
		Footwear:     strings.TrimSpace(wire.Footwear),
		Accessories:  normalizeList(wire.Accessories),
		FoodItems:    normalizeList(wire.FoodItems),
		Reasoning:    strings.TrimSpace(wire.Reasoning),
		ColorPalette: strings.TrimSpace(wire.ColorPalette),
	}
	fields := []struct {
		name  string
		value string
	}{
		{"headline", rec.Headline},
		{"top", rec.Top},
		{"bottom", rec.Bottom},
		{"footwear", rec.Footwear},
		{"reasoning", rec.Reasoning},
		{"colorPalette", rec.ColorPalette},
	}
	for _, f := range fields {
		if f.value == "" {
			return Recommendation{}, fmt.Errorf("field %s is empty", f.name)
		}
	}
	if len(rec.Accessories) == 0 {
		return Recommendation{}, errors.New("accessories list is empty")
	}
	if len(rec.FoodItems) == 0 {
		return Recommendation{}, errors.New("foodItems list is empty")
	}
	return rec, nil
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
		if len(out) == maxListItems {
			break
		}
	}
	return out
}
