package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
)

// Summarizer derives the per-map and per-player read-model rows from a
// resolved match. It only ever writes summary tables, never ratings.
type Summarizer struct {
	repo *Repository
}

func NewSummarizer(repo *Repository) *Summarizer {
	return &Summarizer{repo: repo}
}

// Summarize persists map_results for every played map, player_results for all
// eight participants, and any reported weapon usage.
func (s *Summarizer) Summarize(
	ctx context.Context,
	m *models.Match,
	winners []models.Side,
	winnerSide models.Side,
	alphaMembers, bravoMembers []models.GroupMember,
	weapons []WeaponReport,
) error {
	for i, side := range winners {
		winnerGroupID := m.AlphaGroupID
		if side == models.SideBravo {
			winnerGroupID = m.BravoGroupID
		}
		err := s.repo.InsertMapResult(ctx, models.MapResult{
			GroupMatchID:  m.ID,
			MapIndex:      i,
			Mode:          m.MapList[i].Mode,
			Stage:         m.MapList[i].Stage,
			WinnerGroupID: winnerGroupID,
		})
		if err != nil {
			return err
		}
	}

	played := len(winners)
	insertPlayers := func(members []models.GroupMember, side models.Side) error {
		for _, member := range members {
			err := s.repo.InsertPlayerResult(ctx, models.PlayerResult{
				GroupMatchID: m.ID,
				UserID:       member.UserID,
				Side:         side,
				Won:          side == winnerSide,
				MapsPlayed:   played,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := insertPlayers(alphaMembers, models.SideAlpha); err != nil {
		return err
	}
	if err := insertPlayers(bravoMembers, models.SideBravo); err != nil {
		return err
	}

	participants := make(map[uuid.UUID]bool, len(alphaMembers)+len(bravoMembers))
	for _, member := range append(append([]models.GroupMember(nil), alphaMembers...), bravoMembers...) {
		participants[member.UserID] = true
	}
	for _, w := range weapons {
		if w.MapIndex < 0 || w.MapIndex >= played {
			return fmt.Errorf("weapon report for unplayed map %d: %w", w.MapIndex, ErrInvalidWinners)
		}
		if !participants[w.UserID] {
			return fmt.Errorf("weapon report for non-participant %s: %w", w.UserID, ErrInvalidWinners)
		}
		err := s.repo.InsertReportedWeapon(ctx, models.ReportedWeapon{
			GroupMatchID: m.ID,
			UserID:       w.UserID,
			MapIndex:     w.MapIndex,
			WeaponID:     w.WeaponID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
