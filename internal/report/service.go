package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/group"
	"github.com/sendou-ink/sendou.ink-sub003/internal/match"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/rating"
	"github.com/sendou-ink/sendou.ink-sub003/internal/season"
	"github.com/sendou-ink/sendou.ink-sub003/internal/sqlutil"
)

// Txq is the union of query surfaces the resolution transaction touches.
type Txq interface {
	Querier
	match.Querier
	group.Querier
}

// Service orchestrates the atomic resolve-a-match transaction: validate the
// report, rate the participants, append skill rows, deactivate both groups,
// derive summaries and enqueue the resolved event. Either every write commits
// or none are observable.
type Service struct {
	database *sql.DB
	clock    clockwork.Clock
	schedule season.Schedule
	rater    *rating.Rater
}

// NewService creates a new score reporter.
func NewService(database *sql.DB, clock clockwork.Clock, schedule season.Schedule, rater *rating.Rater) *Service {
	return &Service{
		database: database,
		clock:    clock,
		schedule: schedule,
		rater:    rater,
	}
}

// ReportScore resolves a match from a winners report. Strictly single-shot:
// a second report returns ErrAlreadyResolved and changes nothing. There is no
// cancellation; once the transaction starts it commits fully or rolls back.
func (s *Service) ReportScore(ctx context.Context, matchID uuid.UUID, req ReportScoreRequest) error {
	err := sqlutil.Run(ctx, s.database, db.NewTx, func(q *db.Queries) error {
		return s.reportScoreTx(ctx, q, matchID, req)
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("match_id", matchID.String()).
		Int("maps_played", len(req.Winners)).
		Msg("match resolved")
	return nil
}

func (s *Service) reportScoreTx(ctx context.Context, q Txq, matchID uuid.UUID, req ReportScoreRequest) error {
	matchRepo := match.NewRepository(q)
	groupRepo := group.NewRepository(q)
	repo := NewRepository(q)

	// Lock the match row first: the resolved check must happen inside the
	// transaction to close the double-submit race.
	m, err := matchRepo.MatchForUpdate(ctx, matchID)
	if err != nil {
		return err
	}
	if m.Resolved() {
		return ErrAlreadyResolved
	}

	winnerSide, err := DetermineWinner(req.Winners)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	landed, err := matchRepo.Resolve(ctx, matchID, req.Winners, now)
	if err != nil {
		return err
	}
	if !landed {
		return ErrAlreadyResolved
	}

	alphaMembers, err := groupRepo.Members(ctx, m.AlphaGroupID)
	if err != nil {
		return err
	}
	bravoMembers, err := groupRepo.Members(ctx, m.BravoGroupID)
	if err != nil {
		return err
	}

	winnerGroupID, loserGroupID := m.AlphaGroupID, m.BravoGroupID
	winnerMembers, loserMembers := alphaMembers, bravoMembers
	if winnerSide == models.SideBravo {
		winnerGroupID, loserGroupID = m.BravoGroupID, m.AlphaGroupID
		winnerMembers, loserMembers = bravoMembers, alphaMembers
	}

	seasonN := s.schedule.Latest(now)
	if err := s.applySkills(ctx, matchRepo, repo, m.ID, seasonN, winnerMembers, loserMembers, winnerGroupID, loserGroupID, now); err != nil {
		return err
	}

	// A group never queues again after its match resolves.
	if err := groupRepo.SetInactive(ctx, m.AlphaGroupID); err != nil {
		return err
	}
	if err := groupRepo.SetInactive(ctx, m.BravoGroupID); err != nil {
		return err
	}

	summarizer := NewSummarizer(repo)
	if err := summarizer.Summarize(ctx, m, req.Winners, winnerSide, alphaMembers, bravoMembers, req.Weapons); err != nil {
		return err
	}

	return repo.InsertMatchResolvedEvent(ctx, MatchResolvedEvent{
		MatchID:       m.ID,
		WinnerGroupID: winnerGroupID,
		LoserGroupID:  loserGroupID,
		WinnerSide:    winnerSide,
		MapsPlayed:    len(req.Winners),
		Season:        seasonN,
	}, now)
}

// applySkills rates all participants and appends their new skill rows, plus
// team-of-four identifier rows for full sides.
func (s *Service) applySkills(
	ctx context.Context,
	matchRepo *match.Repository,
	repo *Repository,
	groupMatchID uuid.UUID,
	seasonN int,
	winnerMembers, loserMembers []models.GroupMember,
	winnerGroupID, loserGroupID uuid.UUID,
	now time.Time,
) error {
	winnerPriors, err := s.resolvePriors(ctx, matchRepo, winnerMembers, seasonN)
	if err != nil {
		return err
	}
	loserPriors, err := s.resolvePriors(ctx, matchRepo, loserMembers, seasonN)
	if err != nil {
		return err
	}

	results, err := s.rater.CalculateMatchSkills(toParticipants(winnerPriors), toParticipants(loserPriors))
	if err != nil {
		return fmt.Errorf("failed to rate match: %w", err)
	}

	counts := make(map[uuid.UUID]int, len(winnerPriors)+len(loserPriors))
	for _, p := range append(append([]participant(nil), winnerPriors...), loserPriors...) {
		counts[p.userID] = p.matchesCount
	}
	for _, res := range results {
		err := repo.InsertUserSkill(ctx, res.ID, groupMatchID, seasonN, models.SkillTypeRanked,
			res.Rating.Mu, res.Rating.Sigma, counts[res.ID]+1, now)
		if err != nil {
			return err
		}
	}

	return s.applyTeamSkills(ctx, matchRepo, repo, groupMatchID, seasonN, winnerMembers, loserMembers, now)
}

func (s *Service) applyTeamSkills(
	ctx context.Context,
	matchRepo *match.Repository,
	repo *Repository,
	groupMatchID uuid.UUID,
	seasonN int,
	winnerMembers, loserMembers []models.GroupMember,
	now time.Time,
) error {
	// Team identifiers only exist for full teams-of-four.
	if len(winnerMembers) != models.MaxGroupSize || len(loserMembers) != models.MaxGroupSize {
		return nil
	}

	winnerID := models.TeamIdentifier(memberIDs(winnerMembers))
	loserID := models.TeamIdentifier(memberIDs(loserMembers))

	winnerPrior, winnerCount, err := s.teamPrior(ctx, matchRepo, winnerID, seasonN)
	if err != nil {
		return err
	}
	loserPrior, loserCount, err := s.teamPrior(ctx, matchRepo, loserID, seasonN)
	if err != nil {
		return err
	}

	winRes, loseRes, err := s.rater.CalculateTeamSkills(
		rating.Participant{ID: uuid.New(), Prior: winnerPrior},
		rating.Participant{ID: uuid.New(), Prior: loserPrior},
	)
	if err != nil {
		return fmt.Errorf("failed to rate teams: %w", err)
	}

	err = repo.InsertTeamSkill(ctx, winnerID, groupMatchID, seasonN, models.SkillTypeRanked,
		winRes.Rating.Mu, winRes.Rating.Sigma, winnerCount+1, now)
	if err != nil {
		return err
	}
	return repo.InsertTeamSkill(ctx, loserID, groupMatchID, seasonN, models.SkillTypeRanked,
		loseRes.Rating.Mu, loseRes.Rating.Sigma, loserCount+1, now)
}

func (s *Service) resolvePriors(ctx context.Context, matchRepo *match.Repository, members []models.GroupMember, seasonN int) ([]participant, error) {
	priors := make([]participant, len(members))
	for i, m := range members {
		snap, ok, err := matchRepo.UserSnapshot(ctx, m.UserID, seasonN, models.SkillTypeRanked)
		if err != nil {
			return nil, err
		}
		if !ok {
			def := s.rater.DefaultRating()
			snap = models.SkillSnapshot{Mu: def.Mu, Sigma: def.Sigma, Ordinal: def.Ordinal()}
		}
		priors[i] = participant{
			userID:       m.UserID,
			prior:        snap,
			matchesCount: snap.MatchesCount,
		}
	}
	return priors, nil
}

func (s *Service) teamPrior(ctx context.Context, matchRepo *match.Repository, identifier string, seasonN int) (rating.Rating, int, error) {
	snap, ok, err := matchRepo.TeamSnapshot(ctx, identifier, seasonN, models.SkillTypeRanked)
	if err != nil {
		return rating.Rating{}, 0, err
	}
	if !ok {
		return s.rater.DefaultRating(), 0, nil
	}
	return rating.Rating{Mu: snap.Mu, Sigma: snap.Sigma}, snap.MatchesCount, nil
}

func toParticipants(ps []participant) []rating.Participant {
	out := make([]rating.Participant, len(ps))
	for i, p := range ps {
		out[i] = rating.Participant{
			ID:    p.userID,
			Prior: rating.Rating{Mu: p.prior.Mu, Sigma: p.prior.Sigma},
		}
	}
	return out
}

func memberIDs(members []models.GroupMember) []uuid.UUID {
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}

// DetermineWinner picks the match winner from the per-map report: majority of
// played maps, with the last played map breaking an even split.
func DetermineWinner(winners []models.Side) (models.Side, error) {
	if len(winners) == 0 || len(winners) > models.MapListSize {
		return "", fmt.Errorf("played %d maps: %w", len(winners), ErrInvalidWinners)
	}

	needed := models.MapListSize/2 + 1
	var alpha, bravo int
	for i, side := range winners {
		if alpha >= needed || bravo >= needed {
			return "", fmt.Errorf("map %d reported after the series was decided: %w", i, ErrInvalidWinners)
		}
		switch side {
		case models.SideAlpha:
			alpha++
		case models.SideBravo:
			bravo++
		default:
			return "", fmt.Errorf("unknown side %q: %w", side, ErrInvalidWinners)
		}
	}

	switch {
	case alpha > bravo:
		return models.SideAlpha, nil
	case bravo > alpha:
		return models.SideBravo, nil
	default:
		// Even split: whoever took the final reported map takes the match.
		return winners[len(winners)-1], nil
	}
}
