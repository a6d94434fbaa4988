package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"memberhub-backend-go/internal/db"
)

type DashboardStats struct {
	Users           int `json:"users"`
	GuestUsers      int `json:"guestUsers"`
	PendingApproval int `json:"pendingApproval"`
	BannedUsers     int `json:"bannedUsers"`
	Resources       int `json:"resources"`
	Playbooks       int `json:"playbooks"`
	Events          int `json:"events"`
	OpenQuestions   int `json:"openQuestions"`
	Answers         int `json:"answers"`
	Uploads         int `json:"uploads"`
}

// LoadDashboardStats runs the counts concurrently.
func LoadDashboardStats(ctx context.Context, store *db.Store) (DashboardStats, error) {
	var stats DashboardStats
	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.Users, `SELECT COUNT(*) FROM users WHERE account_kind = 'registered'`},
		{&stats.GuestUsers, `SELECT COUNT(*) FROM users WHERE account_kind = 'guest'`},
		{&stats.PendingApproval, `SELECT COUNT(*) FROM users WHERE approval_status = 'pending' AND account_kind = 'registered'`},
		{&stats.BannedUsers, `SELECT COUNT(*) FROM users WHERE is_banned = 1`},
		{&stats.Resources, `SELECT COUNT(*) FROM resources`},
		{&stats.Playbooks, `SELECT COUNT(*) FROM playbooks`},
		{&stats.Events, `SELECT COUNT(*) FROM events`},
		{&stats.OpenQuestions, `SELECT COUNT(*) FROM questions WHERE status = 'open'`},
		{&stats.Answers, `SELECT COUNT(*) FROM answers`},
		{&stats.Uploads, `SELECT COUNT(*) FROM uploads`},
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range counts {
		g.Go(func() error {
			return store.Get(gctx, c.dest, c.query)
		})
	}
	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}
