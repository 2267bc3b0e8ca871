package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"handrating-backend/internal/models"
)

const (
	usersCollection    = "users"
	paymentsCollection = "payments"
)

var (
	// ErrNotFound is returned when a document does not exist in Firestore.
	ErrNotFound = errors.New("document not found")
	// ErrInsufficientCredits is returned by ConsumeCredit when the balance is zero.
	ErrInsufficientCredits = errors.New("no uploads remaining")
	// ErrInvalidGrant is returned for a grant without a session id or with a non-positive amount.
	ErrInvalidGrant = errors.New("invalid payment grant")
)

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client, now: func() time.Time { return time.Now().UTC() }}
}

func (r *firestoreUserRepository) userRef(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID)
}

// Create adds a new user document keyed by the Firebase Auth UID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.userRef(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s' already exists: %w", user.ID, err)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document by its ID.
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.userRef(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return decodeUser(docSnap)
}

// UpdateFields applies a partial update. updatedAt is always refreshed.
// The document must exist.
func (r *firestoreUserRepository) UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	if userID == "" {
		return errors.New("userID cannot be empty for UpdateFields operation")
	}
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: r.now()})

	if _, err := r.userRef(userID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to update user with ID '%s': %w", userID, err)
	}
	return nil
}

// ConsumeCredit decrements uploadsRemaining inside a transaction so two
// concurrent requests can never spend the same credit.
func (r *firestoreUserRepository) ConsumeCredit(ctx context.Context, userID string) (int, error) {
	ref := r.userRef(userID)
	var remaining int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
			}
			return err
		}
		user, err := decodeUser(snap)
		if err != nil {
			return err
		}
		next, err := planConsume(user.UploadsRemaining)
		if err != nil {
			return err
		}
		remaining = next
		return tx.Update(ref, []firestore.Update{
			{Path: "uploadsRemaining", Value: next},
			{Path: "totalUploads", Value: user.TotalUploads + 1},
			{Path: "updatedAt", Value: r.now()},
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficientCredits) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to consume credit for user '%s': %w", userID, err)
	}
	return remaining, nil
}

// RefundCredit gives back a credit taken by ConsumeCredit.
func (r *firestoreUserRepository) RefundCredit(ctx context.Context, userID string) error {
	_, err := r.userRef(userID).Update(ctx, []firestore.Update{
		{Path: "uploadsRemaining", Value: firestore.Increment(1)},
		{Path: "totalUploads", Value: firestore.Increment(-1)},
		{Path: "updatedAt", Value: r.now()},
	})
	if err != nil {
		return fmt.Errorf("failed to refund credit for user '%s': %w", userID, err)
	}
	return nil
}

// ApplyPaymentGrant reads the user and the payments/{sessionId} record and,
// unless the session was already credited, updates the balance and writes
// the audit record in the same transaction.
func (r *firestoreUserRepository) ApplyPaymentGrant(ctx context.Context, grant models.PaymentGrant) (*models.GrantResult, error) {
	if grant.SessionID == "" || grant.UserID == "" || grant.Credits <= 0 {
		return nil, ErrInvalidGrant
	}
	userRef := r.userRef(grant.UserID)
	paymentRef := r.client.Collection(paymentsCollection).Doc(grant.SessionID)

	var result models.GrantResult
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		userSnap, err := tx.Get(userRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user with ID '%s' not found: %w", grant.UserID, ErrNotFound)
			}
			return err
		}
		recordExists := true
		if _, err := tx.Get(paymentRef); err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			recordExists = false
		}

		user, err := decodeUser(userSnap)
		if err != nil {
			return err
		}
		plan, err := planGrant(user, recordExists, grant)
		if err != nil {
			return err
		}
		result = plan
		if plan.Duplicate {
			return nil
		}

		paidAt := grant.PaidAt
		if paidAt.IsZero() {
			paidAt = r.now()
		}
		if err := tx.Update(userRef, []firestore.Update{
			{Path: "uploadsRemaining", Value: plan.UploadsRemaining},
			{Path: "lastPaymentSessionId", Value: grant.SessionID},
			{Path: "lastPaymentDate", Value: paidAt},
			{Path: "totalPayments", Value: user.TotalPayments + 1},
			{Path: "updatedAt", Value: r.now()},
		}); err != nil {
			return err
		}
		return tx.Create(paymentRef, &models.PaymentRecord{
			SessionID:    grant.SessionID,
			UserID:       grant.UserID,
			AmountTotal:  grant.AmountTotal,
			Currency:     grant.Currency,
			CreditsAdded: grant.Credits,
			Status:       grant.Status,
			CreatedAt:    paidAt,
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidGrant) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply payment grant for session '%s': %w", grant.SessionID, err)
	}
	return &result, nil
}

// planConsume returns the balance after spending one credit.
func planConsume(uploadsRemaining int) (int, error) {
	if uploadsRemaining <= 0 {
		return 0, ErrInsufficientCredits
	}
	return uploadsRemaining - 1, nil
}

// planGrant decides whether a grant is a replay and what the new balance is.
// A session is a replay when it is the user's last credited session or when
// its audit record already exists.
func planGrant(user *models.User, recordExists bool, grant models.PaymentGrant) (models.GrantResult, error) {
	if grant.SessionID == "" || grant.Credits <= 0 {
		return models.GrantResult{}, ErrInvalidGrant
	}
	current := user.UploadsRemaining
	if current < 0 {
		current = 0
	}
	if recordExists || user.LastPaymentSessionID == grant.SessionID {
		return models.GrantResult{
			Duplicate:        true,
			PreviousCredits:  current,
			UploadsRemaining: current,
		}, nil
	}
	return models.GrantResult{
		PreviousCredits:  current,
		UploadsRemaining: current + grant.Credits,
	}, nil
}

func decodeUser(snap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", snap.Ref.ID, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}
