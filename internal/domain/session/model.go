package session

import (
	"time"

	"github.com/yanqian/stylecast/internal/domain/stylist"
	"github.com/yanqian/stylecast/internal/domain/weather"
	"github.com/yanqian/stylecast/pkg/metrics"
)

// State is the orchestrator's main state.
type State string

const (
	StateIdle                     State = "idle"
	StateCollectingInput          State = "collecting_input"
	StateResolvingLocation        State = "resolving_location"
	StateResolvingWeather         State = "resolving_weather"
	StateGeneratingRecommendation State = "generating_recommendation"
	StateReady                    State = "ready"
	StateError                    State = "error"
)

// InProgress reports whether a submission pipeline owns the session.
func (s State) InProgress() bool {
	switch s {
	case StateResolvingLocation, StateResolvingWeather, StateGeneratingRecommendation:
		return true
	}
	return false
}

// AcceptsSubmission reports whether a new submission may start from s.
func (s State) AcceptsSubmission() bool {
	switch s {
	case StateIdle, StateCollectingInput, StateError:
		return true
	}
	return false
}

// VisualizationState is the try-on sub-flow state. It never affects State.
type VisualizationState string

const (
	VisualizationIdle       VisualizationState = "idle"
	VisualizationGenerating VisualizationState = "generating"
	VisualizationDone       VisualizationState = "done"
	VisualizationFailed     VisualizationState = "failed"
)

// Failure is the single user visible error of a session or sub-flow.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BlobRef points at bytes kept in the image store.
type BlobRef struct {
	Key      string `json:"key"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Profile is the stored form of a submitted stylist.UserProfile.
type Profile struct {
	City      string         `json:"city"`
	Age       int            `json:"age"`
	Gender    stylist.Gender `json:"gender"`
	Reference *BlobRef       `json:"reference,omitempty"`
}

// Visualization tracks the latest try-on attempt.
type Visualization struct {
	State     VisualizationState `json:"state"`
	AttemptID string             `json:"attemptId,omitempty"`
	Image     *BlobRef           `json:"image,omitempty"`
	Error     *Failure           `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt,omitempty"`
}

// Session is the persisted orchestrator record.
type Session struct {
	ID             string                  `json:"id"`
	State          State                   `json:"state"`
	SubmissionID   string                  `json:"submissionId,omitempty"`
	Profile        *Profile                `json:"profile,omitempty"`
	Coordinates    *weather.Coordinates    `json:"coordinates,omitempty"`
	Weather        *weather.Conditions     `json:"weather,omitempty"`
	Recommendation *stylist.Recommendation `json:"recommendation,omitempty"`
	Usage          *metrics.TokenUsage     `json:"usage,omitempty"`
	Error          *Failure                `json:"error,omitempty"`
	Visualization  Visualization           `json:"visualization"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
	ExpiresAt      time.Time               `json:"expiresAt"`
}

// SubmitRequest is the raw form input.
type SubmitRequest struct {
	City           string `json:"city"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	ReferenceImage string `json:"referenceImage,omitempty"`
}

// Created is returned when a session starts.
type Created struct {
	Token   string `json:"token"`
	Session View   `json:"session"`
}

// Config tunes the orchestrator.
type Config struct {
	TTL           time.Duration
	MaxImageBytes int
	SweepInterval time.Duration
}
