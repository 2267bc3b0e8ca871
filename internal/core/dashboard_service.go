package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"handrating-backend/internal/models"
)

const dashboardRecentCritiques = 6

// Dashboard is the data behind the dashboard page.
type Dashboard struct {
	User             *models.User       `json:"user"`
	UploadsRemaining int                `json:"uploadsRemaining"`
	RecentCritiques  []*models.Critique `json:"recentCritiques"`
	BestScore        int                `json:"bestScore"`
}

type dashboardService struct {
	users     UserService
	critiques CritiqueService
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(users UserService, critiques CritiqueService) DashboardService {
	return &dashboardService{users: users, critiques: critiques}
}

// Load fetches the profile and recent critiques concurrently.
func (s *dashboardService) Load(ctx context.Context, userID string) (*Dashboard, error) {
	var (
		user      *models.User
		critiques []*models.Critique
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.GetByID(gctx, userID)
		user = u
		return err
	})
	g.Go(func() error {
		cs, err := s.critiques.List(gctx, userID, dashboardRecentCritiques)
		critiques = cs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		User:             user,
		UploadsRemaining: user.UploadsRemaining,
		RecentCritiques:  critiques,
	}
	for _, c := range critiques {
		if c.Score > d.BestScore {
			d.BestScore = c.Score
		}
	}
	return d, nil
}
