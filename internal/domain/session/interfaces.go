package session

import (
	"context"
	"io"
	"time"

	"github.com/yanqian/stylecast/internal/domain/weather"
)

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, city string) (weather.Coordinates, bool, error)
}

// WeatherProvider fetches current conditions.
type WeatherProvider interface {
	Current(ctx context.Context, latitude, longitude float64) (weather.Conditions, bool, error)
}

// Store persists sessions. Get may return a session past its ExpiresAt; the
// service treats it as gone.
type Store interface {
	Get(ctx context.Context, id string) (Session, bool, error)
	Save(ctx context.Context, sess Session) error
	Delete(ctx context.Context, id string) error
}

// ExpiredLister is implemented by stores that keep expired sessions until
// they are listed and deleted, so their images can be released with them.
type ExpiredLister interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// StoredObject describes a blob written to ImageStore.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}

// ImageStore keeps reference photos and generated images.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

func referenceKey(sessionID string) string {
	return "sessions/" + sessionID + "/reference"
}

func tryOnKey(sessionID string) string {
	return "sessions/" + sessionID + "/tryon"
}
