package rating

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func side(n int, r Rating) []Participant {
	ps := make([]Participant, n)
	for i := range ps {
		ps[i] = Participant{ID: uuid.New(), Prior: r}
	}
	return ps
}

func avgDifference(results []Result) float64 {
	var sum float64
	for _, res := range results {
		sum += res.Difference
	}
	return sum / float64(len(results))
}

func TestCalculateMatchSkills_EvenTeams(t *testing.T) {
	rater := NewRater(DefaultConfig())
	prior := rater.DefaultRating()

	winners := side(TeamSize, prior)
	losers := side(TeamSize, prior)

	results, err := rater.CalculateMatchSkills(winners, losers)
	require.NoError(t, err)
	require.Len(t, results, 2*TeamSize)

	for i, res := range results[:TeamSize] {
		assert.Equal(t, winners[i].ID, res.ID)
		assert.Greater(t, res.Rating.Mu, prior.Mu, "winner mu must rise")
		assert.Less(t, res.Rating.Sigma, prior.Sigma, "winner sigma must tighten")
		assert.Greater(t, res.Difference, 0.0)
	}
	for i, res := range results[TeamSize:] {
		assert.Equal(t, losers[i].ID, res.ID)
		assert.Less(t, res.Rating.Mu, prior.Mu, "loser mu must fall")
		assert.Less(t, res.Rating.Sigma, prior.Sigma, "loser sigma must tighten")
	}
}

func TestCalculateMatchSkills_UpsetMovesMore(t *testing.T) {
	rater := NewRater(DefaultConfig())
	strong := Rating{Mu: 32, Sigma: 4}
	weak := Rating{Mu: 20, Sigma: 4}

	// Expected result: the strong side wins.
	expected, err := rater.CalculateMatchSkills(side(TeamSize, strong), side(TeamSize, weak))
	require.NoError(t, err)

	// Upset: the weak side wins.
	upset, err := rater.CalculateMatchSkills(side(TeamSize, weak), side(TeamSize, strong))
	require.NoError(t, err)

	expectedGain := expected[0].Rating.Mu - strong.Mu
	upsetGain := upset[0].Rating.Mu - weak.Mu
	assert.Greater(t, upsetGain, expectedGain,
		"an upset win must move mu more than an expected win")
}

func TestCalculateMatchSkills_SignInvariant(t *testing.T) {
	rater := NewRater(DefaultConfig())
	cases := []struct {
		name             string
		winners, losers  Rating
	}{
		{"even", Rating{25, 25.0 / 3}, Rating{25, 25.0 / 3}},
		{"favored winners", Rating{30, 5}, Rating{22, 6}},
		{"upset", Rating{18, 7}, Rating{31, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := rater.CalculateMatchSkills(side(TeamSize, tc.winners), side(TeamSize, tc.losers))
			require.NoError(t, err)
			winAvg := avgDifference(results[:TeamSize])
			loseAvg := avgDifference(results[TeamSize:])
			assert.GreaterOrEqual(t, winAvg, loseAvg)
		})
	}
}

func TestCalculateTeamSkills(t *testing.T) {
	rater := NewRater(DefaultConfig())
	winner := Participant{ID: uuid.New(), Prior: rater.DefaultRating()}
	loser := Participant{ID: uuid.New(), Prior: rater.DefaultRating()}

	winRes, loseRes, err := rater.CalculateTeamSkills(winner, loser)
	require.NoError(t, err)
	assert.Greater(t, winRes.Rating.Mu, winner.Prior.Mu)
	assert.Less(t, loseRes.Rating.Mu, loser.Prior.Mu)
	assert.Greater(t, winRes.Difference, loseRes.Difference)
}

func TestCalculateMatchSkills_EmptySide(t *testing.T) {
	rater := NewRater(DefaultConfig())
	_, err := rater.CalculateMatchSkills(nil, side(TeamSize, rater.DefaultRating()))
	assert.Error(t, err)
}

func TestOrdinal(t *testing.T) {
	r := Rating{Mu: 25, Sigma: 25.0 / 3}
	assert.InDelta(t, 0, r.Ordinal(), 1e-9, "default rating starts at ordinal zero")
}
