package stylist

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/stylecast/internal/domain/weather"
	"github.com/yanqian/stylecast/internal/infra/llm/gemini"
	apperrors "github.com/yanqian/stylecast/pkg/errors"
)

const (
	tryOnAspectRatio = "3:4"
	defaultImageMime = "image/png"

	ReasonNoContent    = "no content returned (possible content-safety rejection or service busy)"
	ReasonNoImageParts = "no image payload in response"
)

// Visualizer renders a try-on image for a recommendation.
type Visualizer interface {
	Visualize(ctx context.Context, profile UserProfile, conditions weather.Conditions, rec Recommendation) (Image, error)
}

type visualizer struct {
	cfg    Config
	client GenerativeClient
	logger *slog.Logger
}

// NewVisualizer wires the try-on image generator.
func NewVisualizer(cfg Config, client GenerativeClient, logger *slog.Logger) Visualizer {
	return &visualizer{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "stylist.visualizer"),
	}
}

func (v *visualizer) Visualize(ctx context.Context, profile UserProfile, conditions weather.Conditions, rec Recommendation) (Image, error) {
	subj := subjectFor(profile)
	resp, err := v.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Model:    v.cfg.ImageModel,
		Contents: []gemini.Content{{Role: "user", Parts: subj.parts(profile, conditions, rec)}},
		GenerationConfig: &gemini.GenerationConfig{
			ImageConfig: &gemini.ImageConfig{AspectRatio: tryOnAspectRatio},
		},
	})
	if err != nil {
		if gemini.IsCredentialError(err) {
			return Image{}, configurationError(err)
		}
		v.logger.Error("image request failed", "error", err)
		return Image{}, apperrors.Wrap(apperrors.CodeVisualizationFailed, err.Error(), err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		reason := ""
		if resp.PromptFeedback != nil {
			reason = resp.PromptFeedback.BlockReason
		}
		v.logger.Warn("image response had no content", "block_reason", reason)
		return Image{}, apperrors.Wrap(apperrors.CodeVisualizationFailed, ReasonNoContent, nil)
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return Image{}, apperrors.Wrap(apperrors.CodeVisualizationFailed, "image payload is not valid base64", err)
		}
		mimeType := strings.TrimSpace(part.InlineData.MimeType)
		if mimeType == "" {
			mimeType = defaultImageMime
		}
		v.logger.Info("try-on image generated", "mime_type", mimeType, "bytes", len(data), "reference", subj.reference())
		return Image{Data: data, MimeType: mimeType}, nil
	}
	return Image{}, apperrors.Wrap(apperrors.CodeVisualizationFailed, ReasonNoImageParts, nil)
}

// subject is either the user's own photo or a text description of them.
type subject interface {
	parts(profile UserProfile, conditions weather.Conditions, rec Recommendation) []gemini.Part
	reference() bool
}

type withReference struct {
	image ReferenceImage
}

type textOnly struct{}

func subjectFor(profile UserProfile) subject {
	if profile.HasReference() {
		return withReference{image: *profile.ReferenceImage}
	}
	return textOnly{}
}

func (s withReference) parts(profile UserProfile, conditions weather.Conditions, rec Recommendation) []gemini.Part {
	var b strings.Builder
	b.WriteString("Generate a photorealistic fashion image.\n")
	b.WriteString("Use the person in the provided image as the model. Keep their facial features, body type, and hair exact.\n")
	b.WriteString("Dress them in the following outfit:\n")
	writeOutfit(&b, rec)
	fmt.Fprintf(&b, "\nThe person is standing on a street in %s.\n", profile.City)
	fmt.Fprintf(&b, "The weather is %s.\n", conditions.Description)
	b.WriteString("High quality, 4k, fashion photography.")
	return []gemini.Part{
		{InlineData: &gemini.Blob{
			MimeType: s.image.MimeType,
			Data:     base64.StdEncoding.EncodeToString(s.image.Data),
		}},
		gemini.TextPart(b.String()),
	}
}

func (withReference) reference() bool { return true }

func (textOnly) parts(profile UserProfile, conditions weather.Conditions, rec Recommendation) []gemini.Part {
	var b strings.Builder
	fmt.Fprintf(&b, "A full body fashion photography shot of a %d year old %s person standing on a street in %s.\n",
		profile.Age, profile.Gender, profile.City)
	fmt.Fprintf(&b, "The weather is %s.\n", conditions.Description)
	b.WriteString("The person is wearing the following outfit:\n")
	writeOutfit(&b, rec)
	fmt.Fprintf(&b, "\nThe style is %s. High quality, photorealistic, 4k, street style photography.", rec.Headline)
	return []gemini.Part{gemini.TextPart(b.String())}
}

func (textOnly) reference() bool { return false }

func writeOutfit(b *strings.Builder, rec Recommendation) {
	fmt.Fprintf(b, "- Top: %s\n", rec.Top)
	fmt.Fprintf(b, "- Bottom: %s\n", rec.Bottom)
	fmt.Fprintf(b, "- Footwear: %s\n", rec.Footwear)
	fmt.Fprintf(b, "- Accessories: %s\n", strings.Join(rec.Accessories, ", "))
}
