// Package dbtest provides an in-memory stand-in for the generated query
// layer so service transaction bodies can be exercised without Postgres.
package dbtest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
)

// Fake implements the union of the repository Querier interfaces over
// plain in-memory slices. Query semantics mirror the SQL they replace,
// including sql.ErrNoRows on single-row misses.
type Fake struct {
	mu sync.Mutex

	Groups       []db.Group
	Members      []db.GroupMember
	Matches      []db.Match
	Skills       []db.Skill
	Seeding      []db.SeedingSkill
	MapResults   []db.MapResult
	PlayerRes    []db.PlayerResult
	Weapons      []db.ReportedWeapon
	Rosters      []db.TeamRoster
	OutboxEvents []db.OutboxEvent

	seq int64 // breaks created_at ties in latest-row queries
	ord map[uuid.UUID]int64
}

func NewFake() *Fake {
	return &Fake{ord: make(map[uuid.UUID]int64)}
}

func (f *Fake) next(id uuid.UUID) {
	f.seq++
	f.ord[id] = f.seq
}

// --- groups ---

func (f *Fake) CreateGroup(ctx context.Context, arg db.CreateGroupParams) (db.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := db.Group{ID: arg.ID, Status: arg.Status, CreatedAt: arg.CreatedAt}
	f.Groups = append(f.Groups, g)
	return g, nil
}

func (f *Fake) GetGroup(ctx context.Context, id uuid.UUID) (db.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findGroup(id)
}

func (f *Fake) GetGroupForUpdate(ctx context.Context, id uuid.UUID) (db.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findGroup(id)
}

func (f *Fake) findGroup(id uuid.UUID) (db.Group, error) {
	for _, g := range f.Groups {
		if g.ID == id {
			return g, nil
		}
	}
	return db.Group{}, sql.ErrNoRows
}

func (f *Fake) SetGroupInactive(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Groups {
		if f.Groups[i].ID == id {
			f.Groups[i].Status = "INACTIVE"
		}
	}
	return nil
}

func (f *Fake) GetActiveGroupByUser(ctx context.Context, userID uuid.UUID) (db.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.Members {
		if m.UserID != userID {
			continue
		}
		for _, g := range f.Groups {
			if g.ID == m.GroupID && g.Status == "ACTIVE" {
				return g, nil
			}
		}
	}
	return db.Group{}, sql.ErrNoRows
}

func (f *Fake) InsertGroupMember(ctx context.Context, arg db.InsertGroupMemberParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Members = append(f.Members, db.GroupMember{
		GroupID:   arg.GroupID,
		UserID:    arg.UserID,
		Role:      arg.Role,
		CreatedAt: arg.CreatedAt,
	})
	return nil
}

func (f *Fake) DeleteGroupMember(ctx context.Context, arg db.DeleteGroupMemberParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []db.GroupMember
	var deleted int64
	for _, m := range f.Members {
		if m.GroupID == arg.GroupID && m.UserID == arg.UserID {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.Members = kept
	return deleted, nil
}

func (f *Fake) ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]db.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.GroupMember
	for _, m := range f.Members {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *Fake) CountGroupMembers(ctx context.Context, groupID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.Members {
		if m.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (f *Fake) DeleteEmptyActiveGroups(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	memberCounts := make(map[uuid.UUID]int)
	for _, m := range f.Members {
		memberCounts[m.GroupID]++
	}
	var kept []db.Group
	var deleted int64
	for _, g := range f.Groups {
		if g.Status == "ACTIVE" && memberCounts[g.ID] == 0 && g.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, g)
	}
	f.Groups = kept
	return deleted, nil
}

// --- matches ---

func (f *Fake) CreateMatch(ctx context.Context, arg db.CreateMatchParams) (db.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := db.Match{
		ID:           arg.ID,
		AlphaGroupID: arg.AlphaGroupID,
		BravoGroupID: arg.BravoGroupID,
		MapList:      arg.MapList,
		Memento:      arg.Memento,
		CreatedAt:    arg.CreatedAt,
	}
	f.Matches = append(f.Matches, m)
	return m, nil
}

func (f *Fake) GetMatch(ctx context.Context, id uuid.UUID) (db.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findMatch(id)
}

func (f *Fake) GetMatchForUpdate(ctx context.Context, id uuid.UUID) (db.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findMatch(id)
}

func (f *Fake) findMatch(id uuid.UUID) (db.Match, error) {
	for _, m := range f.Matches {
		if m.ID == id {
			return m, nil
		}
	}
	return db.Match{}, sql.ErrNoRows
}

func (f *Fake) CountUnresolvedMatchesByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, m := range f.Matches {
		if m.ReportedAt.Valid {
			continue
		}
		if m.AlphaGroupID == groupID || m.BravoGroupID == groupID {
			count++
		}
	}
	return count, nil
}

func (f *Fake) ResolveMatch(ctx context.Context, arg db.ResolveMatchParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Matches {
		if f.Matches[i].ID != arg.ID || f.Matches[i].ReportedAt.Valid {
			continue
		}
		f.Matches[i].Winners.RawMessage = arg.Winners
		f.Matches[i].Winners.Valid = true
		f.Matches[i].ReportedAt = sql.NullTime{Time: arg.ReportedAt, Valid: true}
		return 1, nil
	}
	return 0, nil
}

// --- skills ---

func (f *Fake) InsertSkill(ctx context.Context, arg db.InsertSkillParams) (db.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := db.Skill{
		ID:           arg.ID,
		Identifier:   arg.Identifier,
		UserID:       arg.UserID,
		GroupMatchID: arg.GroupMatchID,
		Season:       arg.Season,
		Type:         arg.Type,
		Mu:           arg.Mu,
		Sigma:        arg.Sigma,
		Ordinal:      arg.Ordinal,
		MatchesCount: arg.MatchesCount,
		CreatedAt:    arg.CreatedAt,
	}
	f.Skills = append(f.Skills, s)
	f.next(s.ID)
	return s, nil
}

// laterThan reports whether row a should win a latest-row query over b.
func (f *Fake) laterThan(a, b db.Skill) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.MatchesCount != b.MatchesCount {
		return a.MatchesCount > b.MatchesCount
	}
	return f.ord[a.ID] > f.ord[b.ID]
}

func (f *Fake) GetLatestUserSkill(ctx context.Context, arg db.GetLatestUserSkillParams) (db.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *db.Skill
	for i, s := range f.Skills {
		if !s.UserID.Valid || s.UserID.UUID != arg.UserID || s.Season != arg.Season || s.Type != arg.Type {
			continue
		}
		if best == nil || f.laterThan(s, *best) {
			best = &f.Skills[i]
		}
	}
	if best == nil {
		return db.Skill{}, sql.ErrNoRows
	}
	return *best, nil
}

func (f *Fake) GetLatestIdentifierSkill(ctx context.Context, arg db.GetLatestIdentifierSkillParams) (db.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *db.Skill
	for i, s := range f.Skills {
		if !s.Identifier.Valid || s.Identifier.String != arg.Identifier || s.Season != arg.Season || s.Type != arg.Type {
			continue
		}
		if best == nil || f.laterThan(s, *best) {
			best = &f.Skills[i]
		}
	}
	if best == nil {
		return db.Skill{}, sql.ErrNoRows
	}
	return *best, nil
}

func (f *Fake) ListLatestUserSkillsBySeason(ctx context.Context, arg db.ListLatestUserSkillsBySeasonParams) ([]db.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[uuid.UUID]db.Skill)
	for _, s := range f.Skills {
		if !s.UserID.Valid || s.Season != arg.Season || s.Type != arg.Type {
			continue
		}
		if prev, ok := latest[s.UserID.UUID]; !ok || f.laterThan(s, prev) {
			latest[s.UserID.UUID] = s
		}
	}
	out := make([]db.Skill, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID.UUID.String() < out[j].UserID.UUID.String()
	})
	return out, nil
}

func (f *Fake) ListLatestIdentifierSkillsBySeason(ctx context.Context, arg db.ListLatestIdentifierSkillsBySeasonParams) ([]db.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[string]db.Skill)
	for _, s := range f.Skills {
		if !s.Identifier.Valid || s.Season != arg.Season || s.Type != arg.Type {
			continue
		}
		if prev, ok := latest[s.Identifier.String]; !ok || f.laterThan(s, prev) {
			latest[s.Identifier.String] = s
		}
	}
	out := make([]db.Skill, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier.String < out[j].Identifier.String
	})
	return out, nil
}

func (f *Fake) GetSeedingSkill(ctx context.Context, arg db.GetSeedingSkillParams) (db.SeedingSkill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.Seeding {
		if s.UserID == arg.UserID && s.Type == arg.Type {
			return s, nil
		}
	}
	return db.SeedingSkill{}, sql.ErrNoRows
}

func (f *Fake) CountSkillsByGroupMatch(ctx context.Context, groupMatchID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.Skills {
		if s.GroupMatchID.Valid && s.GroupMatchID.UUID == groupMatchID {
			n++
		}
	}
	return n, nil
}

// --- results ---

func (f *Fake) InsertMapResult(ctx context.Context, arg db.InsertMapResultParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MapResults = append(f.MapResults, db.MapResult{
		GroupMatchID:  arg.GroupMatchID,
		MapIndex:      arg.MapIndex,
		Mode:          arg.Mode,
		Stage:         arg.Stage,
		WinnerGroupID: arg.WinnerGroupID,
	})
	return nil
}

func (f *Fake) InsertPlayerResult(ctx context.Context, arg db.InsertPlayerResultParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PlayerRes = append(f.PlayerRes, db.PlayerResult{
		GroupMatchID: arg.GroupMatchID,
		UserID:       arg.UserID,
		Side:         arg.Side,
		Won:          arg.Won,
		MapsPlayed:   arg.MapsPlayed,
	})
	return nil
}

func (f *Fake) InsertReportedWeapon(ctx context.Context, arg db.InsertReportedWeaponParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Weapons = append(f.Weapons, db.ReportedWeapon{
		GroupMatchID: arg.GroupMatchID,
		UserID:       arg.UserID,
		MapIndex:     arg.MapIndex,
		WeaponID:     arg.WeaponID,
	})
	return nil
}

func (f *Fake) WeaponPopularityBySeason(ctx context.Context, arg db.WeaponPopularityBySeasonParams) ([]db.WeaponPopularityBySeasonRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inRange := make(map[uuid.UUID]bool)
	for _, m := range f.Matches {
		if m.ReportedAt.Valid && !m.ReportedAt.Time.Before(arg.StartsAt) && m.ReportedAt.Time.Before(arg.EndsAt) {
			inRange[m.ID] = true
		}
	}
	usage := make(map[int32]int64)
	users := make(map[int32]map[uuid.UUID]bool)
	for _, w := range f.Weapons {
		if !inRange[w.GroupMatchID] {
			continue
		}
		usage[w.WeaponID]++
		if users[w.WeaponID] == nil {
			users[w.WeaponID] = make(map[uuid.UUID]bool)
		}
		users[w.WeaponID][w.UserID] = true
	}
	var out []db.WeaponPopularityBySeasonRow
	for id, n := range usage {
		out = append(out, db.WeaponPopularityBySeasonRow{
			WeaponID:   id,
			UsageCount: n,
			UserCount:  int64(len(users[id])),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].WeaponID < out[j].WeaponID
	})
	return out, nil
}

func (f *Fake) ListTeamRostersByUsers(ctx context.Context, userIDs []uuid.UUID) ([]db.TeamRoster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []db.TeamRoster
	for _, r := range f.Rosters {
		if wanted[r.UserID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- outbox ---

func (f *Fake) InsertOutboxEvent(ctx context.Context, arg db.InsertOutboxEventParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OutboxEvents = append(f.OutboxEvents, db.OutboxEvent{
		ID:        arg.ID,
		MatchID:   arg.MatchID,
		EventType: arg.EventType,
		Payload:   arg.Payload,
		CreatedAt: arg.CreatedAt,
	})
	return nil
}

func (f *Fake) ListUnsentOutboxEvents(ctx context.Context, limit int32) ([]db.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.OutboxEvent
	for _, e := range f.OutboxEvents {
		if e.SentAt.Valid {
			continue
		}
		out = append(out, e)
		if int32(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) MarkOutboxEventSent(ctx context.Context, arg db.MarkOutboxEventSentParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.OutboxEvents {
		if f.OutboxEvents[i].ID == arg.ID && !f.OutboxEvents[i].SentAt.Valid {
			f.OutboxEvents[i].SentAt = sql.NullTime{Time: arg.SentAt, Valid: true}
		}
	}
	return nil
}
