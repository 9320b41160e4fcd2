package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/stylecast/internal/domain/stylist"
	apperrors "github.com/yanqian/stylecast/pkg/errors"
	"github.com/yanqian/stylecast/pkg/util"
)

const (
	weatherFailureMessage    = "Could not fetch weather data."
	generationFailureMessage = "Failed to generate AI recommendation. Please try again."
	defaultTTL               = 2 * time.Hour
	defaultSweepInterval     = 5 * time.Minute
	sweepBatch               = 100
)

var errStale = apperrors.Wrap(apperrors.CodeConflict, "session changed while the request was in flight", nil)

// Service runs the per-session outfit pipeline.
type Service interface {
	Create(ctx context.Context) (Created, error)
	Authenticate(token string) (string, error)
	Get(ctx context.Context, id string) (View, error)
	Submit(ctx context.Context, id string, req SubmitRequest) (View, error)
	Dismiss(ctx context.Context, id string) (View, error)
	Reset(ctx context.Context, id string) (View, error)
	Visualize(ctx context.Context, id string) (View, error)
	Image(ctx context.Context, id string) (stylist.Image, error)
}

type service struct {
	cfg         Config
	store       Store
	images      ImageStore
	geocoder    Geocoder
	forecast    WeatherProvider
	recommender stylist.Recommender
	visualizer  stylist.Visualizer
	tokens      *TokenIssuer
	locks       stripedLock
	logger      *slog.Logger
	now         util.Clock
	newID       func() string
	lastSweep   atomic.Int64
}

// NewService wires the orchestrator.
func NewService(
	cfg Config,
	store Store,
	images ImageStore,
	geocoder Geocoder,
	forecast WeatherProvider,
	recommender stylist.Recommender,
	visualizer stylist.Visualizer,
	tokens *TokenIssuer,
	logger *slog.Logger,
) Service {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return &service{
		cfg:         cfg,
		store:       store,
		images:      images,
		geocoder:    geocoder,
		forecast:    forecast,
		recommender: recommender,
		visualizer:  visualizer,
		tokens:      tokens,
		logger:      logger.With("component", "session.service"),
		now:         util.NowUTC,
		newID:       uuid.NewString,
	}
}

func (s *service) Create(ctx context.Context) (Created, error) {
	now := s.now()
	sess := Session{
		ID:            s.newID(),
		State:         StateIdle,
		Visualization: Visualization{State: VisualizationIdle},
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.TTL),
	}
	token, err := s.tokens.Issue(sess.ID, sess.ExpiresAt)
	if err != nil {
		return Created{}, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return Created{}, apperrors.Wrap(apperrors.CodeSessionStore, "failed to create session", err)
	}
	s.logger.Info("session created", "session_id", sess.ID, "expires_at", sess.ExpiresAt)
	s.sweepIfDue(ctx, now)
	return Created{Token: token, Session: viewOf(sess)}, nil
}

func (s *service) Authenticate(token string) (string, error) {
	return s.tokens.Parse(token)
}

func (s *service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return viewOf(sess), nil
}

func (s *service) Submit(ctx context.Context, id string, req SubmitRequest) (View, error) {
	profile, invalid := validateSubmission(req, s.cfg.MaxImageBytes)
	if invalid != nil {
		sess, err := s.update(ctx, id, func(sess *Session) error {
			if !sess.State.AcceptsSubmission() {
				return conflict(sess.State)
			}
			sess.State = StateCollectingInput
			sess.Error = nil
			return nil
		})
		if err != nil {
			return viewOf(sess), err
		}
		return viewOf(sess), invalid
	}

	submissionID := s.newID()
	var previous *Profile
	sess, err := s.update(ctx, id, func(sess *Session) error {
		if !sess.State.AcceptsSubmission() {
			return conflict(sess.State)
		}
		previous = sess.Profile
		*sess = fresh(*sess)
		sess.SubmissionID = submissionID
		sess.State = StateResolvingLocation
		sess.Profile = &Profile{City: profile.City, Age: profile.Age, Gender: profile.Gender}
		return nil
	})
	if err != nil {
		return viewOf(sess), err
	}
	logger := s.logger.With("session_id", id, "submission_id", submissionID)
	logger.Info("submission accepted", "city", profile.City, "age", profile.Age, "gender", profile.Gender, "reference", profile.HasReference())

	s.deleteBlobs(ctx, tryOnKey(id))
	if previous != nil && previous.Reference != nil && !profile.HasReference() {
		s.deleteBlobs(ctx, previous.Reference.Key)
	}
	if profile.HasReference() {
		obj, err := s.images.Put(ctx, referenceKey(id), profile.ReferenceImage.Data, profile.ReferenceImage.MimeType)
		if err != nil {
			logger.Error("store reference image failed", "error", err)
			return s.fail(ctx, id, submissionID, apperrors.CodeSessionStore, "Could not store the reference photo.", err)
		}
		if sess, err = s.advance(ctx, id, submissionID, func(sess *Session) {
			sess.Profile.Reference = &BlobRef{Key: obj.Key, MimeType: obj.MimeType, Size: obj.Size}
		}); err != nil {
			return viewOf(sess), err
		}
	}

	locationMessage := fmt.Sprintf("Could not find location: %s", profile.City)
	coords, found, err := s.geocoder.Resolve(ctx, profile.City)
	if err != nil {
		logger.Warn("geocoding failed", "error", err)
		return s.fail(ctx, id, submissionID, apperrors.CodeTransportFailure, locationMessage, err)
	}
	if !found {
		logger.Info("location not found", "city", profile.City)
		return s.fail(ctx, id, submissionID, apperrors.CodeLocationNotFound, locationMessage, nil)
	}
	if sess, err = s.advance(ctx, id, submissionID, func(sess *Session) {
		sess.State = StateResolvingWeather
		sess.Coordinates = &coords
	}); err != nil {
		return viewOf(sess), err
	}

	conditions, found, err := s.forecast.Current(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		logger.Warn("weather lookup failed", "error", err)
		return s.fail(ctx, id, submissionID, apperrors.CodeTransportFailure, weatherFailureMessage, err)
	}
	if !found {
		logger.Warn("weather unavailable", "latitude", coords.Latitude, "longitude", coords.Longitude)
		return s.fail(ctx, id, submissionID, apperrors.CodeWeatherUnavailable, weatherFailureMessage, nil)
	}
	if sess, err = s.advance(ctx, id, submissionID, func(sess *Session) {
		sess.State = StateGeneratingRecommendation
		sess.Weather = &conditions
	}); err != nil {
		return viewOf(sess), err
	}

	rec, usage, err := s.recommender.Recommend(ctx, profile, conditions)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeConfiguration) {
			logger.Error("recommendation not configured", "error", err)
			return s.fail(ctx, id, submissionID, apperrors.CodeConfiguration, apperrors.MessageOf(err), err)
		}
		logger.Warn("recommendation failed", "error", err)
		return s.fail(ctx, id, submissionID, apperrors.CodeGenerationFailed, generationFailureMessage, err)
	}
	sess, err = s.advance(ctx, id, submissionID, func(sess *Session) {
		sess.State = StateReady
		sess.Recommendation = &rec
		if !usage.IsZero() {
			sess.Usage = &usage
		}
	})
	if err != nil {
		return viewOf(sess), err
	}
	logger.Info("recommendation ready", "headline", rec.Headline, "weather_code", conditions.WeatherCode)
	return viewOf(sess), nil
}

func (s *service) Dismiss(ctx context.Context, id string) (View, error) {
	var dropped *BlobRef
	sess, err := s.update(ctx, id, func(sess *Session) error {
		if sess.State != StateError {
			return apperrors.Wrap(apperrors.CodeConflict, "there is no error to dismiss", nil)
		}
		sess.State = StateCollectingInput
		sess.Error = nil
		sess.SubmissionID = ""
		if sess.Profile != nil {
			dropped = sess.Profile.Reference
			sess.Profile.Reference = nil
		}
		return nil
	})
	if err != nil {
		return viewOf(sess), err
	}
	if dropped != nil {
		s.deleteBlobs(ctx, dropped.Key)
	}
	return viewOf(sess), nil
}

func (s *service) Reset(ctx context.Context, id string) (View, error) {
	sess, err := s.update(ctx, id, func(sess *Session) error {
		*sess = fresh(*sess)
		sess.State = StateIdle
		sess.SubmissionID = ""
		sess.Profile = nil
		return nil
	})
	if err != nil {
		return viewOf(sess), err
	}
	s.deleteBlobs(ctx, referenceKey(id), tryOnKey(id))
	s.logger.Info("session reset", "session_id", id)
	return viewOf(sess), nil
}

func (s *service) Visualize(ctx context.Context, id string) (View, error) {
	attemptID := s.newID()
	sess, err := s.update(ctx, id, func(sess *Session) error {
		if sess.State != StateReady || sess.Recommendation == nil || sess.Weather == nil || sess.Profile == nil {
			return apperrors.Wrap(apperrors.CodeConflict, "a try-on can only be generated once a recommendation is ready", nil)
		}
		sess.Visualization.State = VisualizationGenerating
		sess.Visualization.AttemptID = attemptID
		sess.Visualization.Error = nil
		sess.Visualization.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return viewOf(sess), err
	}
	submissionID := sess.SubmissionID
	logger := s.logger.With("session_id", id, "attempt_id", attemptID)

	profile, err := s.userProfile(ctx, *sess.Profile)
	if err != nil {
		logger.Error("load reference image failed", "error", err)
		return s.finishVisualization(ctx, id, submissionID, stylist.Image{},
			apperrors.Wrap(apperrors.CodeVisualizationFailed, "reference photo is no longer available", err))
	}
	logger.Info("generating try-on image", "reference", profile.HasReference())
	img, genErr := s.visualizer.Visualize(ctx, profile, *sess.Weather, *sess.Recommendation)
	if genErr != nil {
		logger.Warn("try-on generation failed", "error", genErr)
	}
	return s.finishVisualization(ctx, id, submissionID, img, genErr)
}

// finishVisualization records the outcome of an attempt. Whichever attempt
// finishes last wins; results for a reset or resubmitted session are dropped.
func (s *service) finishVisualization(ctx context.Context, id, submissionID string, img stylist.Image, genErr error) (View, error) {
	ctx = context.WithoutCancel(ctx)
	var resultErr error
	sess, err := s.update(ctx, id, func(sess *Session) error {
		if sess.SubmissionID != submissionID || sess.State != StateReady {
			return errStale
		}
		now := s.now()
		sess.Visualization.UpdatedAt = now
		if genErr != nil {
			code := apperrors.CodeOf(genErr)
			if code == "" {
				code = apperrors.CodeVisualizationFailed
			}
			sess.Visualization.State = VisualizationFailed
			sess.Visualization.Error = &Failure{Code: code, Message: apperrors.MessageOf(genErr)}
			sess.Visualization.Image = nil
			resultErr = genErr
			return nil
		}
		obj, err := s.images.Put(ctx, tryOnKey(id), img.Data, img.MimeType)
		if err != nil {
			sess.Visualization.State = VisualizationFailed
			sess.Visualization.Error = &Failure{Code: apperrors.CodeSessionStore, Message: "Could not store the generated image."}
			sess.Visualization.Image = nil
			resultErr = apperrors.Wrap(apperrors.CodeSessionStore, "Could not store the generated image.", err)
			return nil
		}
		sess.Visualization.State = VisualizationDone
		sess.Visualization.Error = nil
		sess.Visualization.Image = &BlobRef{Key: obj.Key, MimeType: obj.MimeType, Size: obj.Size}
		return nil
	})
	if err != nil {
		return viewOf(sess), err
	}
	return viewOf(sess), resultErr
}

func (s *service) Image(ctx context.Context, id string) (stylist.Image, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return stylist.Image{}, err
	}
	ref := sess.Visualization.Image
	if sess.Visualization.State != VisualizationDone || ref == nil {
		return stylist.Image{}, apperrors.Wrap(apperrors.CodeConflict, "no try-on image has been generated", nil)
	}
	data, err := s.readBlob(ctx, ref.Key)
	if err != nil {
		return stylist.Image{}, apperrors.Wrap(apperrors.CodeSessionStore, "failed to read try-on image", err)
	}
	return stylist.Image{Data: data, MimeType: ref.MimeType}, nil
}

func (s *service) userProfile(ctx context.Context, p Profile) (stylist.UserProfile, error) {
	profile := stylist.UserProfile{City: p.City, Age: p.Age, Gender: p.Gender}
	if p.Reference == nil {
		return profile, nil
	}
	data, err := s.readBlob(ctx, p.Reference.Key)
	if err != nil {
		return stylist.UserProfile{}, err
	}
	profile.ReferenceImage = &stylist.ReferenceImage{Data: data, MimeType: p.Reference.MimeType}
	return profile, nil
}

func (s *service) readBlob(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.images.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *service) deleteBlobs(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.images.Delete(ctx, key); err != nil {
			s.logger.Warn("delete image failed", "key", key, "error", err)
		}
	}
}

// fail moves the submission into the error state with one displayable failure.
func (s *service) fail(ctx context.Context, id, submissionID, code, message string, cause error) (View, error) {
	sess, err := s.advance(ctx, id, submissionID, func(sess *Session) {
		sess.State = StateError
		sess.Error = &Failure{Code: code, Message: message}
	})
	if err != nil {
		return viewOf(sess), err
	}
	return viewOf(sess), apperrors.Wrap(code, message, cause)
}

// advance applies a pipeline transition unless a newer submission or a reset
// has replaced the one that started it. Transitions are written even when the
// caller has gone away, otherwise the session would stay in progress forever.
func (s *service) advance(ctx context.Context, id, submissionID string, fn func(*Session)) (Session, error) {
	return s.update(context.WithoutCancel(ctx), id, func(sess *Session) error {
		if sess.SubmissionID != submissionID {
			return errStale
		}
		fn(sess)
		return nil
	})
}

func (s *service) update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if err := fn(&sess); err != nil {
		if errors.Is(err, errStale) {
			s.logger.Info("dropping stale transition", "session_id", id)
		}
		return sess, err
	}
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return sess, apperrors.Wrap(apperrors.CodeSessionStore, "failed to save session", err)
	}
	return sess, nil
}

func (s *service) load(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, apperrors.Wrap(apperrors.CodeSessionNotFound, "session not found", nil)
	}
	sess, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeSessionStore, "failed to load session", err)
	}
	if !ok {
		return Session{}, apperrors.Wrap(apperrors.CodeSessionNotFound, "session not found or expired", nil)
	}
	if util.Expired(sess.ExpiresAt, s.now()) {
		s.discard(ctx, id)
		return Session{}, apperrors.Wrap(apperrors.CodeSessionNotFound, "session not found or expired", nil)
	}
	return sess, nil
}

// discard drops an expired session together with its images. An expired
// session accepts no further writes, so Get may call it without the lock.
func (s *service) discard(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	s.deleteBlobs(ctx, referenceKey(id), tryOnKey(id))
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn("delete expired session failed", "session_id", id, "error", err)
		return
	}
	s.logger.Info("expired session discarded", "session_id", id)
}

// sweepIfDue releases sessions nobody came back for. It runs inline on session
// creation at most once per SweepInterval, and only for stores that can list
// expired sessions.
func (s *service) sweepIfDue(ctx context.Context, now time.Time) {
	lister, ok := s.store.(ExpiredLister)
	if !ok {
		return
	}
	last := s.lastSweep.Load()
	if now.Sub(time.Unix(0, last)) < s.cfg.SweepInterval {
		return
	}
	if !s.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	swept, err := s.sweep(context.WithoutCancel(ctx), lister, now)
	if err != nil {
		s.logger.Warn("sweep expired sessions failed", "error", err)
	}
	if swept > 0 {
		s.logger.Info("swept expired sessions", "count", swept)
	}
}

func (s *service) sweep(ctx context.Context, lister ExpiredLister, now time.Time) (int, error) {
	ids, err := lister.ListExpired(ctx, now, sweepBatch)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		unlock := s.locks.lock(id)
		s.discard(ctx, id)
		unlock()
	}
	return len(ids), nil
}

// fresh keeps identity and lifetime and drops every derived result.
func fresh(sess Session) Session {
	return Session{
		ID:            sess.ID,
		State:         sess.State,
		SubmissionID:  sess.SubmissionID,
		Profile:       sess.Profile,
		Visualization: Visualization{State: VisualizationIdle},
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
		ExpiresAt:     sess.ExpiresAt,
	}
}

func conflict(state State) error {
	return apperrors.Wrap(apperrors.CodeConflict, fmt.Sprintf("session is %s and cannot accept a submission", state), nil)
}
