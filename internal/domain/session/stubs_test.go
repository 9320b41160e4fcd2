package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/yanqian/stylecast/internal/domain/stylist"
	"github.com/yanqian/stylecast/internal/domain/weather"
	"github.com/yanqian/stylecast/internal/infra/llm/gemini"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]Session)}
}

func (m *memoryStore) Get(_ context.Context, id string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok, nil
}

func (m *memoryStore) Save(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := json.Marshal(sess)
	var clone Session
	_ = json.Unmarshal(data, &clone)
	m.sessions[sess.ID] = clone
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, sess := range m.sessions {
		if len(ids) == limit {
			break
		}
		if !sess.ExpiresAt.IsZero() && sess.ExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// ctxStore fails once the caller's context is done, like network-backed stores.
type ctxStore struct {
	*memoryStore
}

func (s ctxStore) Get(ctx context.Context, id string) (Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, false, err
	}
	return s.memoryStore.Get(ctx, id)
}

func (s ctxStore) Save(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.memoryStore.Save(ctx, sess)
}

type memoryImages struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryImages() *memoryImages {
	return &memoryImages{blobs: make(map[string][]byte)}
}

func (m *memoryImages) Put(_ context.Context, key string, data []byte, mimeType string) (StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return StoredObject{Key: key, Size: int64(len(data)), MimeType: mimeType}, nil
}

func (m *memoryImages) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryImages) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memoryImages) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

type stubGeocoder struct {
	coords weather.Coordinates
	found  bool
	err    error
	calls  int
}

func (s *stubGeocoder) Resolve(_ context.Context, city string) (weather.Coordinates, bool, error) {
	s.calls++
	if s.err != nil || !s.found {
		return weather.Coordinates{}, false, s.err
	}
	coords := s.coords
	coords.PlaceName = city
	return coords, true, nil
}

type stubForecast struct {
	code  int
	temp  float64
	found bool
	err   error
	calls int
}

func (s *stubForecast) Current(_ context.Context, _, _ float64) (weather.Conditions, bool, error) {
	s.calls++
	if s.err != nil || !s.found {
		return weather.Conditions{}, false, s.err
	}
	return weather.Annotate(s.temp, s.code, true), true, nil
}

// stubModel answers text and image requests through the real stylist services.
type stubModel struct {
	mu        sync.Mutex
	text      string
	image     gemini.GenerateContentResponse
	textCalls int
	lastImage gemini.GenerateContentRequest
	onImage   func()
}

func (s *stubModel) GenerateContent(_ context.Context, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
	s.mu.Lock()
	if req.Model == testImageModel {
		s.lastImage = req
		hook := s.onImage
		resp := s.image
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
		return resp, nil
	}
	s.textCalls++
	text := s.text
	s.mu.Unlock()
	return gemini.GenerateContentResponse{Candidates: []gemini.Candidate{{Content: &gemini.Content{Parts: []gemini.Part{{Text: text}}}}}}, nil
}

const (
	testTextModel  = "text-model"
	testImageModel = "image-model"
)

func rainyRecommendationJSON() string {
	data, _ := json.Marshal(stylist.Recommendation{
		Headline:     "London Rain Ready",
		Top:          "Waxed rain jacket over a merino crew",
		Bottom:       "Slim dark chinos",
		Footwear:     "Waterproof leather boots",
		Accessories:  []string{"Compact umbrella", "Flat cap"},
		FoodItems:    []string{"Thermos of tea", "Flapjack"},
		Reasoning:    "Dry and sharp for a wet day.",
		ColorPalette: "Olive and Navy",
	})
	return string(data)
}

func pngResponse(data []byte) gemini.GenerateContentResponse {
	return gemini.GenerateContentResponse{Candidates: []gemini.Candidate{{Content: &gemini.Content{Parts: []gemini.Part{
		{InlineData: &gemini.Blob{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(data)}},
	}}}}}
}

type fixture struct {
	svc      *service
	store    *memoryStore
	images   *memoryImages
	geocoder *stubGeocoder
	forecast *stubForecast
	model    *stubModel
}

func newFixture(t *testing.T, textClient stylist.GenerativeClient) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemoryStore(),
		images:   newMemoryImages(),
		geocoder: &stubGeocoder{coords: weather.Coordinates{Latitude: 51.5, Longitude: -0.12, Country: "United Kingdom"}, found: true},
		forecast: &stubForecast{code: 61, temp: 12, found: true},
		model:    &stubModel{text: rainyRecommendationJSON(), image: pngResponse([]byte("png-bytes"))},
	}
	var client stylist.GenerativeClient = f.model
	if textClient != nil {
		client = textClient
	}
	cfg := stylist.Config{TextModel: testTextModel, ImageModel: testImageModel}
	logger := discardLogger()
	svc := NewService(
		Config{TTL: time.Hour, MaxImageBytes: 1 << 10},
		f.store,
		f.images,
		f.geocoder,
		f.forecast,
		stylist.NewRecommender(cfg, client, nil, logger),
		stylist.NewVisualizer(cfg, f.model, logger),
		NewTokenIssuer("test-secret"),
		logger,
	)
	f.svc = svc.(*service)
	return f
}

func (f *fixture) create(t *testing.T) string {
	t.Helper()
	created, err := f.svc.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return created.Session.ID
}
