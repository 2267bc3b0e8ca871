package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"handrating-backend/internal/cache"
	"handrating-backend/internal/critique"
	"handrating-backend/internal/db"
	"handrating-backend/internal/events"
	"handrating-backend/internal/imageproc"
	"handrating-backend/internal/models"
	"handrating-backend/internal/providers"
)

const critiqueLockPrefix = "critique:"

// CritiqueConfig bounds uploads and the per-user lock.
type CritiqueConfig struct {
	MaxImageBytes int64
	ImageMaxWidth int
	// LockTTL should outlast the vision provider's full retry budget.
	LockTTL time.Duration
}

type critiqueService struct {
	userRepo     db.UserRepository
	critiqueRepo db.CritiqueRepository
	vision       providers.VisionClient
	locker       cache.Locker
	events       events.Publisher
	verdicts     *critique.Verdicts
	cfg          CritiqueConfig
	log          *zap.Logger
	now          func() time.Time
}

// NewCritiqueService creates a CritiqueService.
func NewCritiqueService(
	userRepo db.UserRepository,
	critiqueRepo db.CritiqueRepository,
	vision providers.VisionClient,
	locker cache.Locker,
	pub events.Publisher,
	verdicts *critique.Verdicts,
	cfg CritiqueConfig,
	log *zap.Logger,
) CritiqueService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &critiqueService{
		userRepo:     userRepo,
		critiqueRepo: critiqueRepo,
		vision:       vision,
		locker:       locker,
		events:       pub,
		verdicts:     verdicts,
		cfg:          cfg,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Generate validates the image, spends one credit and asks the vision model
// for a critique. The credit is refunded when the model call fails. A failed
// save is logged and the critique is still returned.
func (s *critiqueService) Generate(ctx context.Context, userID string, image []byte, language string) (*models.Critique, error) {
	log := s.log.With(zap.String("user_id", userID))

	if s.cfg.MaxImageBytes > 0 && int64(len(image)) > s.cfg.MaxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(image), s.cfg.MaxImageBytes)
	}
	img, err := imageproc.Normalize(image, s.cfg.ImageMaxWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	lockKey := critiqueLockPrefix + userID
	lockToken, acquired, err := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire critique lock: %w", err)
	}
	if !acquired {
		return nil, ErrCritiqueInProgress
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, lockKey, lockToken); err != nil {
			log.Warn("critique lock release failed", zap.Error(err))
		}
	}()

	if language == "" {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
			}
			return nil, err
		}
		language = user.Language
	}
	language = critique.NormalizeLanguage(language)

	remaining, err := s.userRepo.ConsumeCredit(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrInsufficientCredits):
			return nil, ErrNoCredits
		case errors.Is(err, db.ErrNotFound):
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, err
	}
	log.Info("credit consumed", zap.Int("uploads_remaining", remaining))

	raw, err := s.vision.Analyze(ctx, critique.Prompt(language), img.Data, img.MIME)
	if err != nil {
		log.Error("vision provider failed, refunding credit", zap.String("provider", s.vision.Name()), zap.Error(err))
		refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if rerr := s.userRepo.RefundCredit(refundCtx, userID); rerr != nil {
			log.Error("credit refund failed", zap.Error(rerr))
		}
		return nil, fmt.Errorf("%w: %v", ErrCritiqueProvider, err)
	}

	result, ok := critique.Parse(raw, language, s.verdicts)
	if !ok {
		log.Warn("vision output could not be parsed, using fallback critique", zap.Int("raw_len", len(raw)))
	}

	c := &models.Critique{
		UserID:       userID,
		ImageURL:     img.DataURL(),
		Score:        result.Score,
		Critique:     result.Critique,
		Strengths:    result.Strengths,
		Improvements: result.Improvements,
		Verdict:      result.Verdict,
		Language:     language,
		Fallback:     result.Fallback,
		CreatedAt:    s.now(),
	}
	id, err := s.critiqueRepo.Create(ctx, userID, c)
	if err != nil {
		log.Error("failed to save critique", zap.Error(err))
		return c, nil
	}
	c.ID = id
	publish(ctx, s.events, log, events.NewEvent(events.TypeCritiqueCreated, CritiqueCreatedEvent{
		CritiqueID: id,
		UserID:     userID,
		Score:      c.Score,
		Language:   language,
		Fallback:   c.Fallback,
	}))
	return c, nil
}

// List returns the user's critiques, newest first.
func (s *critiqueService) List(ctx context.Context, userID string, limit int) ([]*models.Critique, error) {
	return s.critiqueRepo.ListByUser(ctx, userID, limit)
}

// Get returns one critique of the user.
func (s *critiqueService) Get(ctx context.Context, userID, critiqueID string) (*models.Critique, error) {
	c, err := s.critiqueRepo.GetByID(ctx, userID, critiqueID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCritiqueNotFound, critiqueID)
		}
		return nil, err
	}
	return c, nil
}
