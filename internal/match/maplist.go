package match

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"

	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
)

// MapPool holds the mode rotation and the per-mode stage pools the generator
// draws from.
type MapPool struct {
	Rotation []models.Mode            `yaml:"rotation"`
	Stages   map[models.Mode][]string `yaml:"stages"`
}

// DefaultMapPool returns the full rotation with the stock stage lists.
func DefaultMapPool() MapPool {
	stages := []string{
		"Scorch Gorge",
		"Eeltail Alley",
		"Hagglefish Market",
		"Undertow Spillway",
		"Mincemeat Metalworks",
		"Hammerhead Bridge",
		"Museum d'Alfonsino",
		"Mahi-Mahi Resort",
		"Inkblot Art Academy",
		"Sturgeon Shipyard",
		"MakoMart",
		"Wahoo World",
		"Flounder Heights",
		"Brinewater Springs",
		"Manta Maria",
		"Um'ami Ruins",
		"Humpback Pump Track",
		"Barnacle & Dime",
		"Crableg Capital",
		"Shipshape Cargo Co.",
	}
	pool := MapPool{
		Rotation: []models.Mode{models.ModeSZ, models.ModeTC, models.ModeRM, models.ModeCB},
		Stages:   make(map[models.Mode][]string),
	}
	for _, mode := range []models.Mode{models.ModeTW, models.ModeSZ, models.ModeTC, models.ModeRM, models.ModeCB} {
		pool.Stages[mode] = stages
	}
	return pool
}

// mapListGenerator produces the fixed seven-entry map list for a match.
// Guarded by a mutex because math/rand sources are not safe for concurrent
// use and matches can be paired from multiple requests at once.
type mapListGenerator struct {
	pool MapPool

	mu  sync.Mutex
	rng *rand.Rand
}

func newMapListGenerator(pool MapPool, rng *rand.Rand) *mapListGenerator {
	return &mapListGenerator{pool: pool, rng: rng}
}

// Generate builds the list: slots 0..5 alternate pick attribution between the
// two groups (even index alpha, odd bravo) and slot 6 is the shared
// tiebreaker pick. Stages are drawn without replacement within the list.
func (g *mapListGenerator) Generate(alphaGroupID, bravoGroupID uuid.UUID, excludedModes []models.Mode) (models.MapList, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rotation := pie.Filter(g.pool.Rotation, func(m models.Mode) bool {
		return !pie.Contains(excludedModes, m)
	})
	if len(rotation) == 0 {
		// Every preferred mode excluded: fall back to the ranked set.
		rotation = append([]models.Mode(nil), models.RankedModes...)
	}
	rotation = pie.Shuffle(rotation, rand.NewSource(g.rng.Int63()))

	used := make(map[string]bool, models.MapListSize)
	var list models.MapList
	for i := 0; i < models.MapListSize; i++ {
		mode := rotation[i%len(rotation)]
		stage, err := g.drawStage(mode, used)
		if err != nil {
			return models.MapList{}, err
		}

		source := models.SourceShared()
		if i < models.MapListSize-1 {
			if i%2 == 0 {
				source = models.SourceGroup(alphaGroupID)
			} else {
				source = models.SourceGroup(bravoGroupID)
			}
		}
		list[i] = models.MapListEntry{Mode: mode, Stage: stage, Source: source}
	}
	return list, nil
}

func (g *mapListGenerator) drawStage(mode models.Mode, used map[string]bool) (string, error) {
	candidates := pie.Filter(g.pool.Stages[mode], func(s string) bool {
		return !used[s]
	})
	if len(candidates) == 0 {
		return "", fmt.Errorf("map pool exhausted for mode %s", mode)
	}
	stage := candidates[g.rng.Intn(len(candidates))]
	used[stage] = true
	return stage, nil
}
