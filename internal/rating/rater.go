// Package rating implements the Bayesian skill update applied when a match
// resolves. It is pure: no I/O, no clock, no storage. Callers resolve priors
// (latest skill row, seeding skill, or defaults) and own all bookkeeping such
// as matchesCount.
package rating

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
)

// TeamSize is the number of rated participants per side of a full match.
const TeamSize = 4

// Config holds the update coefficients. The defaults follow the usual
// TrueSkill-style parameterization: beta half the initial sigma, tau a small
// dynamics factor keeping ratings from freezing as sigma converges.
type Config struct {
	InitialMu    float64 `yaml:"initial_mu"`
	InitialSigma float64 `yaml:"initial_sigma"`
	Beta         float64 `yaml:"beta"`
	Tau          float64 `yaml:"tau"`
}

// DefaultConfig returns the production coefficients (mu 25, sigma 25/3).
func DefaultConfig() Config {
	sigma := 25.0 / 3.0
	return Config{
		InitialMu:    25.0,
		InitialSigma: sigma,
		Beta:         sigma / 2.0,
		Tau:          sigma / 100.0,
	}
}

// Rating is a Gaussian skill belief.
type Rating struct {
	Mu    float64
	Sigma float64
}

// Ordinal returns the conservative point estimate mu - 3*sigma.
func (r Rating) Ordinal() float64 {
	return models.Ordinal(r.Mu, r.Sigma)
}

// Participant is one rated entity (a user, or a whole group treated as one).
type Participant struct {
	ID    uuid.UUID
	Prior Rating
}

// Result pairs a participant with its posterior and the ordinal delta
// (newOrdinal - priorOrdinal), recorded purely for audit and display.
type Result struct {
	ID         uuid.UUID
	Rating     Rating
	Difference float64
}

// Rater computes posterior ratings for a two-team match outcome.
type Rater struct {
	cfg  Config
	norm distuv.Normal
}

func NewRater(cfg Config) *Rater {
	return &Rater{
		cfg:  cfg,
		norm: distuv.Normal{Mu: 0, Sigma: 1},
	}
}

// DefaultRating is the prior used for a participant with no history at all.
func (r *Rater) DefaultRating() Rating {
	return Rating{Mu: r.cfg.InitialMu, Sigma: r.cfg.InitialSigma}
}

// CalculateMatchSkills updates all participants of a decided match. Winners'
// mu rises and losers' mu falls by an amount scaled by the rating gap between
// the sides; everyone's sigma tightens. Results are returned winners first,
// in input order.
func (r *Rater) CalculateMatchSkills(winners, losers []Participant) ([]Result, error) {
	if len(winners) == 0 || len(losers) == 0 {
		return nil, fmt.Errorf("rating: both sides need at least one participant (got %d vs %d)", len(winners), len(losers))
	}

	tau2 := r.cfg.Tau * r.cfg.Tau
	winVars := inflate(winners, tau2)
	loseVars := inflate(losers, tau2)

	// c^2 aggregates every participant's uncertainty plus both sides'
	// performance variance.
	c2 := 2 * r.cfg.Beta * r.cfg.Beta
	for _, v := range winVars {
		c2 += v
	}
	for _, v := range loseVars {
		c2 += v
	}
	c := math.Sqrt(c2)

	t := (teamMu(winners) - teamMu(losers)) / c
	v, w := r.vw(t)

	results := make([]Result, 0, len(winners)+len(losers))
	for i, p := range winners {
		results = append(results, r.update(p, winVars[i], c, c2, v, w, +1))
	}
	for i, p := range losers {
		results = append(results, r.update(p, loseVars[i], c, c2, v, w, -1))
	}
	return results, nil
}

// CalculateTeamSkills runs the same update with each group treated as a
// single rated entity; used for the team-of-four identifier rows.
func (r *Rater) CalculateTeamSkills(winner, loser Participant) (winRes, loseRes Result, err error) {
	results, err := r.CalculateMatchSkills([]Participant{winner}, []Participant{loser})
	if err != nil {
		return Result{}, Result{}, err
	}
	return results[0], results[1], nil
}

func (r *Rater) update(p Participant, variance, c, c2, v, w, sign float64) Result {
	mu := p.Prior.Mu + sign*(variance/c)*v
	sigma2 := variance * (1 - (variance/c2)*w)
	// sigma never collapses entirely; the dynamics factor keeps a floor.
	sigma := math.Sqrt(math.Max(sigma2, r.cfg.Tau*r.cfg.Tau))
	next := Rating{Mu: mu, Sigma: sigma}
	return Result{
		ID:         p.ID,
		Rating:     next,
		Difference: next.Ordinal() - p.Prior.Ordinal(),
	}
}

// vw returns the additive and multiplicative truncated-Gaussian correction
// terms for a win/loss observation at normalized distance t.
func (r *Rater) vw(t float64) (v, w float64) {
	denom := r.norm.CDF(t)
	if denom < 1e-10 {
		// Far tail: the correction converges to -t.
		v = -t
	} else {
		v = r.norm.Prob(t) / denom
	}
	w = v * (v + t)
	if w < 0 {
		w = 0
	} else if w > 1 {
		w = 1
	}
	return v, w
}

func inflate(ps []Participant, tau2 float64) []float64 {
	vars := make([]float64, len(ps))
	for i, p := range ps {
		vars[i] = p.Prior.Sigma*p.Prior.Sigma + tau2
	}
	return vars
}

func teamMu(ps []Participant) float64 {
	var sum float64
	for _, p := range ps {
		sum += p.Prior.Mu
	}
	return sum
}
