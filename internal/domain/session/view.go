package session

import (
	"time"

	"github.com/yanqian/stylecast/internal/domain/stylist"
	"github.com/yanqian/stylecast/internal/domain/weather"
	"github.com/yanqian/stylecast/pkg/metrics"
)

// View is the client facing projection of a Session. Storage keys stay private.
type View struct {
	ID             string                  `json:"id"`
	State          State                   `json:"state"`
	Profile        *ProfileView            `json:"profile,omitempty"`
	Coordinates    *weather.Coordinates    `json:"coordinates,omitempty"`
	Weather        *weather.Conditions     `json:"weather,omitempty"`
	Recommendation *stylist.Recommendation `json:"recommendation,omitempty"`
	Usage          *metrics.TokenUsage     `json:"usage,omitempty"`
	Error          *Failure                `json:"error,omitempty"`
	Visualization  VisualizationView       `json:"visualization"`
	ExpiresAt      time.Time               `json:"expiresAt"`
}

// ProfileView echoes the submitted input for form prefill.
type ProfileView struct {
	City              string         `json:"city"`
	Age               int            `json:"age"`
	Gender            stylist.Gender `json:"gender"`
	HasReferenceImage bool           `json:"hasReferenceImage"`
}

// VisualizationView describes the try-on sub-flow.
type VisualizationView struct {
	State     VisualizationState `json:"state"`
	MimeType  string             `json:"mimeType,omitempty"`
	Error     *Failure           `json:"error,omitempty"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

func viewOf(sess Session) View {
	v := View{
		ID:             sess.ID,
		State:          sess.State,
		Coordinates:    sess.Coordinates,
		Weather:        sess.Weather,
		Recommendation: sess.Recommendation,
		Usage:          sess.Usage,
		Error:          sess.Error,
		ExpiresAt:      sess.ExpiresAt,
		Visualization: VisualizationView{
			State: sess.Visualization.State,
			Error: sess.Visualization.Error,
		},
	}
	if v.Visualization.State == "" {
		v.Visualization.State = VisualizationIdle
	}
	if sess.Visualization.Image != nil {
		v.Visualization.MimeType = sess.Visualization.Image.MimeType
	}
	if !sess.Visualization.UpdatedAt.IsZero() {
		ts := sess.Visualization.UpdatedAt
		v.Visualization.UpdatedAt = &ts
	}
	if p := sess.Profile; p != nil {
		v.Profile = &ProfileView{
			City:              p.City,
			Age:               p.Age,
			Gender:            p.Gender,
			HasReferenceImage: p.Reference != nil,
		}
	}
	return v
}
