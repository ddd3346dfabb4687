package claim

import (
	"context"
	"testing"
	"time"

	"creator-missions/pkg/errutil"
	"creator-missions/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := testutil.NewTestDB(t, Models()...)
	node := testutil.NewTestNode(t)
	return NewStore(StoreParams{DB: db, Node: node})
}

func seedClaim(t *testing.T, s *Store, id string) *Claim {
	t.Helper()
	c := &Claim{
		ID:         id,
		CampaignID: "campaign-1",
		ShillerID:  "shiller-1",
		Proof:      datatypes.NewJSONType(Proof{ContentIDs: []string{"1", "2"}, DisclosureFound: true}),
	}
	require.NoError(t, s.CreateClaim(context.Background(), c))
	return c
}

func TestStatusTransitionTable(t *testing.T) {
	require.True(t, StatusPending.CanTransitionTo(StatusUnderReview))
	require.True(t, StatusUnderReview.CanTransitionTo(StatusApproved))
	require.True(t, StatusPending.CanTransitionTo(StatusRejected))
	require.True(t, StatusApproved.CanTransitionTo(StatusPaid))

	require.False(t, StatusApproved.CanTransitionTo(StatusPending))
	require.False(t, StatusPaid.CanTransitionTo(StatusApproved))
	require.False(t, StatusRejected.CanTransitionTo(StatusApproved))
	require.False(t, StatusUnderReview.CanTransitionTo(StatusPaid))

	require.True(t, StatusPaid.Terminal())
	require.True(t, StatusRejected.Terminal())
	require.False(t, StatusApproved.Terminal())
}

func TestGetClaimNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetClaim(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, errutil.IsNotFound(err))

	_, err = s.GetCampaign(context.Background(), "missing")
	require.True(t, errutil.IsNotFound(err))
}

func TestCreateClaimStartsPending(t *testing.T) {
	s := newTestStore(t)
	seedClaim(t, s, "c1")

	got, err := s.GetClaim(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
	require.Nil(t, got.MetricsDigest)
	require.Equal(t, []string{"1", "2"}, got.Proof.Data().ContentIDs)
	require.True(t, got.Proof.Data().DisclosureFound)
}

func TestSetMetricsDigestFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedClaim(t, s, "c1")

	written, err := s.SetMetricsDigest(ctx, "c1", "aaaa")
	require.NoError(t, err)
	require.True(t, written)

	written, err = s.SetMetricsDigest(ctx, "c1", "bbbb")
	require.NoError(t, err)
	require.False(t, written)

	got, err := s.GetClaim(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "aaaa", got.Digest())
	require.Equal(t, StatusUnderReview, got.Status)
}

func TestSetMetricsDigestKeepsLaterStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedClaim(t, s, "c1")

	ok, err := s.TransitionStatus(ctx, "c1", StatusApproved, nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.SetMetricsDigest(ctx, "c1", "aaaa")
	require.NoError(t, err)

	got, err := s.GetClaim(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)
}

func TestTransitionStatusForwardOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedClaim(t, s, "c1")

	ok, err := s.TransitionStatus(ctx, "c1", StatusPaid, nil)
	require.NoError(t, err)
	require.False(t, ok, "pending cannot jump to paid")

	ok, err = s.TransitionStatus(ctx, "c1", StatusApproved, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.TransitionStatus(ctx, "c1", StatusRejected, nil)
	require.NoError(t, err)
	require.False(t, ok, "approved cannot become rejected")

	ok, err = s.TransitionStatus(ctx, "c1", StatusPaid, map[string]any{"onchain_claim_address": "addr"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.TransitionStatus(ctx, "c1", StatusPaid, nil)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.TransitionStatus(ctx, "c1", StatusPending, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, err := s.GetClaim(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, got.Status)
	require.Equal(t, "addr", got.OnchainClaimAddress)
}

func TestInsertPayoutOncePerKind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedClaim(t, s, "c1")

	created, err := s.InsertPayout(ctx, &Payout{ClaimID: "c1", Kind: PayoutBase, TxSignature: "sig-1", AmountAtomic: 100})
	require.NoError(t, err)
	require.True(t, created)

	created, err = s.InsertPayout(ctx, &Payout{ClaimID: "c1", Kind: PayoutBase, TxSignature: "sig-2", AmountAtomic: 100})
	require.NoError(t, err)
	require.False(t, created)

	created, err = s.InsertPayout(ctx, &Payout{ClaimID: "c1", Kind: PayoutBonus, TxSignature: "sig-3", AmountAtomic: 7})
	require.NoError(t, err)
	require.True(t, created)

	payouts, err := s.ListPayouts(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, payouts, 2)

	base, err := s.GetPayout(ctx, "c1", PayoutBase)
	require.NoError(t, err)
	require.Equal(t, "sig-1", base.TxSignature)

	none, err := s.GetPayout(ctx, "other", PayoutBase)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestPayoutReservation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedClaim(t, s, "c1")

	reserved, err := s.ReservePayout(ctx, &PayoutReservation{ClaimID: "c1", Kind: PayoutBonus, AmountAtomic: 10})
	require.NoError(t, err)
	require.True(t, reserved)

	reserved, err = s.ReservePayout(ctx, &PayoutReservation{ClaimID: "c1", Kind: PayoutBonus, AmountAtomic: 99})
	require.NoError(t, err)
	require.False(t, reserved)

	// an open reservation can be cancelled and taken again
	require.NoError(t, s.CancelReservation(ctx, "c1", PayoutBonus))
	held, err := s.GetReservation(ctx, "c1", PayoutBonus)
	require.NoError(t, err)
	require.Nil(t, held)

	reserved, err = s.ReservePayout(ctx, &PayoutReservation{ClaimID: "c1", Kind: PayoutBonus, AmountAtomic: 20})
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, s.MarkReleased(ctx, "c1", PayoutBonus, "sig-1"))
	require.NoError(t, s.MarkReleased(ctx, "c1", PayoutBonus, "sig-2"))

	// a released reservation survives cancellation
	require.NoError(t, s.CancelReservation(ctx, "c1", PayoutBonus))
	held, err = s.GetReservation(ctx, "c1", PayoutBonus)
	require.NoError(t, err)
	require.NotNil(t, held)
	require.True(t, held.Released())
	require.Equal(t, "sig-1", held.TxSignature)
	require.Equal(t, int64(20), held.AmountAtomic)
}

func TestSnapshotsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedClaim(t, s, "c1")

	t0 := time.Now().Add(-time.Minute)
	require.NoError(t, s.AppendMetricsSnapshot(ctx, &MetricsSnapshot{ClaimID: "c1", ContentID: "1", Likes: 3, FetchedAt: t0}))
	require.NoError(t, s.AppendMetricsSnapshot(ctx, &MetricsSnapshot{ClaimID: "c1", ContentID: "1", Likes: 5}))
	require.NoError(t, s.AppendMetricsSnapshot(ctx, &MetricsSnapshot{ClaimID: "other", ContentID: "9", Likes: 1}))

	snaps, err := s.ListMetricsSnapshots(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.Equal(t, int64(3), snaps[0].Likes)
	require.Equal(t, int64(5), snaps[1].Likes)
	require.NotEqual(t, snaps[0].ID, snaps[1].ID)
}

func TestSnapshotsSameInstantKeepInsertOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedClaim(t, s, "c1")

	at := time.Now().Truncate(time.Second)
	for _, likes := range []int64{3, 7, 11} {
		require.NoError(t, s.AppendMetricsSnapshot(ctx, &MetricsSnapshot{ClaimID: "c1", ContentID: "1", Likes: likes, FetchedAt: at}))
	}

	snaps, err := s.ListMetricsSnapshots(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	require.Equal(t, int64(3), snaps[0].Likes)
	require.Equal(t, int64(7), snaps[1].Likes)
	require.Equal(t, int64(11), snaps[2].Likes)
}

func TestMirrorCampaignKeepsConstraints(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	minEngagements := int64(50)
	require.NoError(t, s.MirrorCampaign(ctx, &Campaign{
		Address:        "camp-addr",
		Hashtag:        "x402",
		MinEngagements: &minEngagements,
	}))

	require.NoError(t, s.MirrorCampaign(ctx, &Campaign{
		Address:             "camp-addr",
		Hashtag:             "x402",
		EngagementsVerified: 900,
		IsComplete:          true,
	}))

	got, err := s.GetCampaign(ctx, "camp-addr")
	require.NoError(t, err)
	require.True(t, got.IsComplete)
	require.Equal(t, int64(900), got.EngagementsVerified)
	require.NotNil(t, got.MinEngagements)
	require.Equal(t, int64(50), *got.MinEngagements)
}

func TestListClaimsByStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedClaim(t, s, "c1")
	seedClaim(t, s, "c2")
	seedClaim(t, s, "c3")

	_, err := s.TransitionStatus(ctx, "c2", StatusApproved, nil)
	require.NoError(t, err)

	pending, err := s.ListClaimsByStatus(ctx, "campaign-1", StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	limited, err := s.ListClaimsByStatus(ctx, "campaign-1", StatusPending, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
