package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/nft-marketplace/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRanker struct {
	reply  string
	err    error
	system string
	user   string
}

func (r *stubRanker) Complete(_ context.Context, system, user string) (string, error) {
	r.system, r.user = system, user
	return r.reply, r.err
}

func TestRemoteMatch_PreservesServiceOrder(t *testing.T) {
	r := &stubRanker{reply: " 3, 1 ,99, 3,,x"}
	rec, err := NewRemoteMatcher(r).Match(context.Background(), "something wavy", testCatalog())
	require.NoError(t, err)

	assert.Equal(t, OutcomeRemote, rec.Outcome)
	assert.Equal(t, []string{"3", "1"}, ids(rec.Listings))
	assert.Equal(t, "something wavy", r.user)
	assert.Contains(t, r.system, "ID: 3\nName: Quantum Tide\nDescription: waves of probability\nPrice: 0.0000000000000025 SONIC")
	assert.Contains(t, r.system, "comma-separated list of IDs")
}

func TestRemoteMatch_Errors(t *testing.T) {
	_, err := NewRemoteMatcher(&stubRanker{err: errors.New("timeout")}).Match(context.Background(), "q", testCatalog())
	assert.ErrorIs(t, err, models.ErrRecommendationService)

	_, err = NewRemoteMatcher(&stubRanker{reply: "   "}).Match(context.Background(), "q", testCatalog())
	assert.ErrorIs(t, err, models.ErrRecommendationService)
}

func TestRemoteMatch_UnknownIDsYieldEmpty(t *testing.T) {
	rec, err := NewRemoteMatcher(&stubRanker{reply: "I have no idea"}).Match(context.Background(), "q", testCatalog())
	require.NoError(t, err)
	assert.Empty(t, rec.Listings)
}

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, ParseIDList("1,2,1"))
	assert.Nil(t, ParseIDList(""))
}
