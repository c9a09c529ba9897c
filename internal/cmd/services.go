package main

import (
	"database/sql"
	"math/rand"

	"github.com/jonboulle/clockwork"

	"github.com/sendou-ink/sendou.ink-sub003/internal/group"
	"github.com/sendou-ink/sendou.ink-sub003/internal/leaderboard"
	"github.com/sendou-ink/sendou.ink-sub003/internal/match"
	"github.com/sendou-ink/sendou.ink-sub003/internal/rating"
	"github.com/sendou-ink/sendou.ink-sub003/internal/report"
)

type Services struct {
	Groups       *group.Service
	Matches      *match.Service
	Reports      *report.Service
	Leaderboards *leaderboard.Service
	Sweeper      *group.Sweeper
}

func setupServices(database *sql.DB, config *Config, clock clockwork.Clock) *Services {
	rater := rating.NewRater(config.Rating)
	rng := rand.New(rand.NewSource(clock.Now().UnixNano()))

	groupService := group.NewService(database, clock)
	matchService := match.NewService(database, clock, config.Season, config.MapPool, rng)
	reportService := report.NewService(database, clock, config.Season, rater)
	leaderboardService := leaderboard.NewService(database, clock, config.Season, config.Leaderboard)
	sweeper := group.NewSweeper(groupService, clock, group.DefaultSweeperConfig())

	return &Services{
		Groups:       groupService,
		Matches:      matchService,
		Reports:      reportService,
		Leaderboards: leaderboardService,
		Sweeper:      sweeper,
	}
}
