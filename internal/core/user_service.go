package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"handrating-backend/internal/db"
	"handrating-backend/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo db.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new one.
// Returns the user, a boolean indicating if the user was created, and an error if any.
func (s *userService) GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}

	now := time.Now().UTC()
	newUser := &models.User{
		ID:                  userID,
		Email:               email,
		DisplayName:         displayName,
		PhotoURL:            photoURL,
		OnboardingCompleted: false,
		UploadsRemaining:    0,
		Language:            models.LanguageEnglish,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, false, fmt.Errorf("failed to create user (id: %s) after not found: %w", userID, err)
	}
	return newUser, true, nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	return user, nil
}

// UpdateLanguage stores the UI language. Spanish and French users skip the
// onboarding questionnaire, so choosing them also marks onboarding completed.
func (s *userService) UpdateLanguage(ctx context.Context, userID, language string) (*models.User, error) {
	switch language {
	case models.LanguageEnglish, models.LanguageSpanish, models.LanguageFrench:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, language)
	}

	fields := map[string]interface{}{"language": language}
	if language != models.LanguageEnglish {
		fields["onboardingCompleted"] = true
	}
	if err := s.update(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

// SaveOnboarding stores the questionnaire answers.
func (s *userService) SaveOnboarding(ctx context.Context, userID string, req models.UpdateOnboardingRequest) (*models.User, error) {
	data := req.Data
	if data.Obstacles == nil {
		data.Obstacles = []string{}
	}
	fields := map[string]interface{}{"onboardingData": data}
	if req.Completed {
		fields["onboardingCompleted"] = true
	}
	if err := s.update(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

// GetCredits returns the user's remaining uploads.
func (s *userService) GetCredits(ctx context.Context, userID string) (int, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.UploadsRemaining, nil
}

func (s *userService) update(ctx context.Context, userID string, fields map[string]interface{}) error {
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return fmt.Errorf("failed to update user '%s': %w", userID, err)
	}
	return nil
}
