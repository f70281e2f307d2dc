// Package survey turns submitted answers into a generated candy image and
// records booth photos against a result.
package survey

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/candybooth/internal/layers"
	"github.com/ayusman/candybooth/internal/storage"
	"github.com/ayusman/candybooth/internal/store"
)

// ErrInvalidSubmission is returned for a submission that fails validation.
var ErrInvalidSubmission = errors.New("invalid submission")

// Object metadata for uploads.
const (
	GeneratedCacheControl = "31536000"
	PNGContentType        = "image/png"
)

// ResultStore is the subset of the result repository the service needs.
type ResultStore interface {
	GetByID(id int64) (*store.Result, error)
	UpdateAnswers(id int64, answers []int64, imageURL, imageKey string) error
	UpdatePhoto(id int64, photoURL, photoKey string) error
	CountByAnswers(answers []int64) (int, error)
}

// Submission is one completed survey.
type Submission struct {
	ResultID       int64
	Answers        []int64
	TotalQuestions int
	IsAdult        bool
}

// Outcome describes a stored submission.
type Outcome struct {
	ResultID          int64
	GeneratedImageURL string
	// SameCount includes this submission.
	SameCount int
	PastCount int
}

// DuplicateRank is the 1-based position of this result among results with
// the same answers.
func (o Outcome) DuplicateRank() int {
	return o.SameCount
}

// Config holds the collaborators of a Service.
type Config struct {
	Results   ResultStore
	Resolver  *layers.Resolver
	Generated storage.ObjectStore
	Photos    storage.ObjectStore
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service orchestrates layer resolution, compositing, upload and bookkeeping.
type Service struct {
	results   ResultStore
	resolver  *layers.Resolver
	generated storage.ObjectStore
	photos    storage.ObjectStore
	now       func() time.Time
}

// New creates a Service.
func New(cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		results:   cfg.Results,
		resolver:  cfg.Resolver,
		generated: cfg.Generated,
		photos:    cfg.Photos,
		now:       now,
	}
}

// Submit builds and uploads the candy image for a submission, then stores the
// answers. When no layer matches, nothing is uploaded and the result is left
// untouched.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	if sub.ResultID <= 0 {
		return nil, fmt.Errorf("%w: result id %d", ErrInvalidSubmission, sub.ResultID)
	}
	if sub.Answers == nil {
		return nil, fmt.Errorf("%w: answers missing", ErrInvalidSubmission)
	}

	if _, err := s.results.GetByID(sub.ResultID); err != nil {
		return nil, err
	}

	mode := layers.ModeFromAdult(sub.IsAdult)
	resolved, err := s.resolver.Resolve(sub.Answers, mode)
	if err != nil {
		return nil, err
	}

	img, err := layers.Flatten(s.resolver.FS(), resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to composite layers: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}

	key := layers.ObjectKey(mode, layers.ContentKey(sub.Answers, mode, s.now()))
	url, err := s.generated.Put(ctx, key, storage.PutOptions{
		ContentType:  PNGContentType,
		CacheControl: GeneratedCacheControl,
	}, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to upload composite image: %w", err)
	}

	if err := s.results.UpdateAnswers(sub.ResultID, sub.Answers, url, key); err != nil {
		return nil, fmt.Errorf("failed to save answers: %w", err)
	}

	same, err := s.results.CountByAnswers(sub.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to count matching results: %w", err)
	}

	out := &Outcome{
		ResultID:          sub.ResultID,
		GeneratedImageURL: url,
		SameCount:         same,
		PastCount:         max(0, same-1),
	}

	log.Info().
		Int64("resultId", sub.ResultID).
		Int("totalQuestions", sub.TotalQuestions).
		Int("answersCount", len(sub.Answers)).
		Int("layers", len(resolved)).
		Str("url", url).
		Int("sameCount", out.SameCount).
		Int("pastCount", out.PastCount).
		Msg("Survey results saved")

	return out, nil
}

// PhotoKey is the object key for a photo captured at t.
func PhotoKey(resultID int64, t time.Time) string {
	return fmt.Sprintf("results/%d/photo-%d.png", resultID, t.UnixMilli())
}

// SavePhoto uploads a captured photo and records its URL on the result.
func (s *Service) SavePhoto(ctx context.Context, resultID int64, contentType string, data []byte) (string, error) {
	if resultID <= 0 {
		return "", fmt.Errorf("%w: result id %d", ErrInvalidSubmission, resultID)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty photo", ErrInvalidSubmission)
	}
	if _, err := s.results.GetByID(resultID); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = PNGContentType
	}

	key := PhotoKey(resultID, s.now())
	url, err := s.photos.Put(ctx, key, storage.PutOptions{ContentType: contentType}, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	if err := s.results.UpdatePhoto(resultID, url, key); err != nil {
		return "", fmt.Errorf("failed to save photo url: %w", err)
	}

	log.Info().Int64("resultId", resultID).Str("url", url).Int("bytes", len(data)).Msg("Photo saved")
	return url, nil
}

// Photo returns the stored photo bytes for a result.
func (s *Service) Photo(ctx context.Context, res *store.Result) ([]byte, error) {
	if res.PhotoKey == "" {
		return nil, storage.ErrObjectNotFound
	}
	return s.photos.Get(ctx, res.PhotoKey)
}

// GeneratedImage returns the stored candy image bytes for a result.
func (s *Service) GeneratedImage(ctx context.Context, res *store.Result) ([]byte, error) {
	if res.GeneratedImageKey == "" {
		return nil, storage.ErrObjectNotFound
	}
	return s.generated.Get(ctx, res.GeneratedImageKey)
}
