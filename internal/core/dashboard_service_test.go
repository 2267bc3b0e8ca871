package core

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"handrating-backend/internal/cache"
	"handrating-backend/internal/models"
)

func TestDashboardLoad(t *testing.T) {
	repo := newMemUserRepo(&models.User{ID: "u1", UploadsRemaining: 4})
	crit := &MockCritiqueRepository{ListByUserFunc: func(ctx context.Context, uid string, limit int) ([]*models.Critique, error) {
		return []*models.Critique{{ID: "a", Score: 62}, {ID: "b", Score: 88}}, nil
	}}
	critiques := NewCritiqueService(repo, crit, &MockVisionClient{}, cache.NewLocalLocker(), nil, testVerdicts(t), CritiqueConfig{}, zap.NewNop())
	svc := NewDashboardService(NewUserService(repo), critiques)

	d, err := svc.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.UploadsRemaining != 4 || len(d.RecentCritiques) != 2 || d.BestScore != 88 {
		t.Errorf("unexpected dashboard %+v", d)
	}
}

func TestDashboardLoad_UnknownUser(t *testing.T) {
	repo := newMemUserRepo()
	critiques := NewCritiqueService(repo, &MockCritiqueRepository{}, &MockVisionClient{}, cache.NewLocalLocker(), nil, testVerdicts(t), CritiqueConfig{}, zap.NewNop())
	svc := NewDashboardService(NewUserService(repo), critiques)

	if _, err := svc.Load(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}
