package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"creator-missions/pkg/config"
	"creator-missions/pkg/errutil"
	"creator-missions/pkg/ledger"
	"creator-missions/pkg/ledger/mocks"
	"creator-missions/pkg/metricsource"
	"creator-missions/pkg/taskname"
	"creator-missions/services/claim"
	"creator-missions/services/testutil"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

type queueStub struct {
	ids   map[string]bool
	tasks []*asynq.Task
}

func (q *queueStub) Enqueue(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	for _, opt := range opts {
		if opt.Type() != asynq.TaskIDOpt {
			continue
		}
		id := opt.Value().(string)
		if q.ids[id] {
			return nil, fmt.Errorf("failed to enqueue task: %w", asynq.ErrTaskIDConflict)
		}
		q.ids[id] = true
	}
	q.tasks = append(q.tasks, t)
	return &asynq.TaskInfo{ID: fmt.Sprint(len(q.tasks)), Queue: taskname.LaneOf(t.Type()), Type: t.Type()}, nil
}

type searcherStub struct {
	posts []metricsource.Post
	query string
}

func (s *searcherStub) SearchRecent(ctx context.Context, query string, since time.Time, limit int) ([]metricsource.Post, error) {
	s.query = query
	return s.posts, nil
}

func newScannerStore(t *testing.T) *claim.Store {
	t.Helper()
	db := testutil.NewTestDB(t, claim.Models()...)
	node := testutil.NewTestNode(t)
	return claim.NewStore(claim.StoreParams{DB: db, Node: node})
}

func seedClaim(t *testing.T, store *claim.Store, id, campaign string, status claim.Status, contentIDs ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateClaim(ctx, &claim.Claim{
		ID:         id,
		CampaignID: campaign,
		ShillerID:  "shiller-" + id,
		Proof:      datatypes.NewJSONType(claim.Proof{ContentIDs: contentIDs, DisclosureFound: true}),
	}))

	path := map[claim.Status][]claim.Status{
		claim.StatusApproved: {claim.StatusApproved},
		claim.StatusPaid:     {claim.StatusApproved, claim.StatusPaid},
	}
	for _, next := range path[status] {
		moved, err := store.TransitionStatus(ctx, id, next, nil)
		require.NoError(t, err)
		require.True(t, moved)
	}
}

func TestOracleScanSeedsPendingClaims(t *testing.T) {
	ctx := context.Background()
	store := newScannerStore(t)
	client := mocks.NewMockClient(gomock.NewController(t))
	queue := &queueStub{ids: map[string]bool{}}

	seedClaim(t, store, "c1", "camp-1", claim.StatusPending, "1", "2")
	seedClaim(t, store, "c2", "camp-1", claim.StatusApproved, "3")
	seedClaim(t, store, "c3", "camp-1", claim.StatusPending, "4")

	client.EXPECT().ListCampaigns(gomock.Any(), false).Return([]ledger.CampaignAccount{
		{Address: "camp-1", Hashtag: "x402", GoalEngagements: 1000, RewardPerEngagement: 10},
	}, nil).Times(2)

	s := NewOracleScanner(OracleParams{Config: &config.Config{}, Ledger: client, Store: store, Queue: queue})
	require.NoError(t, s.Scan(ctx))
	require.Len(t, queue.tasks, 2)
	for _, task := range queue.tasks {
		require.Equal(t, taskname.MetricsFetch, task.Type())
	}

	// a second tick while the jobs are still queued adds nothing
	require.NoError(t, s.Scan(ctx))
	require.Len(t, queue.tasks, 2)

	campaign, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	require.Equal(t, "x402", campaign.Hashtag)
	require.Equal(t, int64(10), campaign.RewardPerEngagement)
}

func TestOracleScanSubmitsCampaignProof(t *testing.T) {
	ctx := context.Background()
	store := newScannerStore(t)
	client := mocks.NewMockClient(gomock.NewController(t))
	searcher := &searcherStub{posts: []metricsource.Post{
		{ID: "p1", Metrics: metricsource.PublicMetrics{Likes: 2, Reposts: 1}},
		{ID: "p2", Metrics: metricsource.PublicMetrics{Replies: 1, Quotes: 1, Impressions: 500}},
	}}

	cfg := &config.Config{}
	cfg.Oracle.SubmitCampaignProofs = true

	client.EXPECT().ListCampaigns(gomock.Any(), false).Return([]ledger.CampaignAccount{{Address: "camp-1", Hashtag: "x402"}}, nil)
	client.EXPECT().SubmitProof(gomock.Any(), "camp-1", uint64(5), "p1").Return(&ledger.Receipt{Signature: "sig"}, nil)

	s := NewOracleScanner(OracleParams{Config: cfg, Ledger: client, Store: store, Queue: &queueStub{ids: map[string]bool{}}, Searcher: searcher})
	require.NoError(t, s.Scan(ctx))
	require.Equal(t, "#x402", searcher.query)
}

func TestOracleScanSkipsProofWithoutEngagement(t *testing.T) {
	store := newScannerStore(t)
	client := mocks.NewMockClient(gomock.NewController(t))
	searcher := &searcherStub{posts: []metricsource.Post{{ID: "p1", Metrics: metricsource.PublicMetrics{Impressions: 40}}}}

	cfg := &config.Config{}
	cfg.Oracle.SubmitCampaignProofs = true

	client.EXPECT().ListCampaigns(gomock.Any(), false).Return([]ledger.CampaignAccount{{Address: "camp-1", Hashtag: "x402"}}, nil)

	s := NewOracleScanner(OracleParams{Config: cfg, Ledger: client, Store: store, Queue: &queueStub{ids: map[string]bool{}}, Searcher: searcher})
	require.NoError(t, s.Scan(context.Background()))
}

func TestOracleScanLedgerFailure(t *testing.T) {
	client := mocks.NewMockClient(gomock.NewController(t))
	client.EXPECT().ListCampaigns(gomock.Any(), false).Return(nil, errors.New("rpc down"))

	s := NewOracleScanner(OracleParams{Config: &config.Config{}, Ledger: client, Store: newScannerStore(t), Queue: &queueStub{ids: map[string]bool{}}})
	require.Error(t, s.Scan(context.Background()))
}

func TestDistributionPaysBonusOnce(t *testing.T) {
	ctx := context.Background()
	store := newScannerStore(t)
	client := mocks.NewMockClient(gomock.NewController(t))

	seedClaim(t, store, "c1", "camp-1", claim.StatusPaid, "1")
	seedClaim(t, store, "c2", "camp-1", claim.StatusPaid, "2")
	seedClaim(t, store, "c3", "camp-1", claim.StatusApproved, "3")
	require.NoError(t, store.AppendMetricsSnapshot(ctx, &claim.MetricsSnapshot{ClaimID: "c1", ContentID: "1", Likes: 20, Reposts: 10}))
	require.NoError(t, store.AppendMetricsSnapshot(ctx, &claim.MetricsSnapshot{ClaimID: "c2", ContentID: "2", Impressions: 300}))
	require.NoError(t, store.AppendMetricsSnapshot(ctx, &claim.MetricsSnapshot{ClaimID: "c3", ContentID: "3", Likes: 5}))

	client.EXPECT().ListCampaigns(gomock.Any(), true).Return([]ledger.CampaignAccount{
		{Address: "camp-1", Hashtag: "x402", RewardPerEngagement: 1000, IsComplete: true},
	}, nil).Times(2)
	client.EXPECT().ReleasePayment(gomock.Any(), "camp-1", "shiller-c1", uint64(30)).
		Return(&ledger.Receipt{Signature: "bonus-sig"}, nil)

	s := NewDistributionScanner(DistributionParams{Ledger: client, Store: store})
	require.NoError(t, s.Scan(ctx))
	require.NoError(t, s.Scan(ctx))

	bonus, err := store.GetPayout(ctx, "c1", claim.PayoutBonus)
	require.NoError(t, err)
	require.NotNil(t, bonus)
	require.Equal(t, "bonus-sig", bonus.TxSignature)
	require.Equal(t, int64(30*1000), bonus.AmountAtomic)

	none, err := store.GetPayout(ctx, "c2", claim.PayoutBonus)
	require.NoError(t, err)
	require.Nil(t, none)

	campaign, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	require.True(t, campaign.IsComplete)
}

func TestDistributionContinuesAfterCampaignFailure(t *testing.T) {
	ctx := context.Background()
	store := newScannerStore(t)
	client := mocks.NewMockClient(gomock.NewController(t))

	seedClaim(t, store, "a1", "camp-a", claim.StatusPaid, "1")
	seedClaim(t, store, "b1", "camp-b", claim.StatusPaid, "2")
	require.NoError(t, store.AppendMetricsSnapshot(ctx, &claim.MetricsSnapshot{ClaimID: "a1", ContentID: "1", Likes: 4}))
	require.NoError(t, store.AppendMetricsSnapshot(ctx, &claim.MetricsSnapshot{ClaimID: "b1", ContentID: "2", Likes: 6}))

	client.EXPECT().ListCampaigns(gomock.Any(), true).Return([]ledger.CampaignAccount{
		{Address: "camp-a", Hashtag: "a", RewardPerEngagement: 1, IsComplete: true},
		{Address: "camp-b", Hashtag: "b", RewardPerEngagement: 1, IsComplete: true},
	}, nil)
	client.EXPECT().ReleasePayment(gomock.Any(), "camp-a", "shiller-a1", uint64(4)).
		Return(nil, errors.New("InsufficientBudget"))
	client.EXPECT().ReleasePayment(gomock.Any(), "camp-b", "shiller-b1", uint64(6)).
		Return(&ledger.Receipt{Signature: "sig-b"}, nil)

	s := NewDistributionScanner(DistributionParams{Ledger: client, Store: store})
	require.NoError(t, s.Scan(ctx))

	failed, err := store.GetPayout(ctx, "a1", claim.PayoutBonus)
	require.NoError(t, err)
	require.Nil(t, failed)

	// a rejected release frees the claim for the next scan
	held, err := store.GetReservation(ctx, "a1", claim.PayoutBonus)
	require.NoError(t, err)
	require.Nil(t, held)

	paid, err := store.GetPayout(ctx, "b1", claim.PayoutBonus)
	require.NoError(t, err)
	require.NotNil(t, paid)
}

func TestDistributionOverlappingScansReleaseOnce(t *testing.T) {
	ctx := context.Background()
	store := newScannerStore(t)
	client := mocks.NewMockClient(gomock.NewController(t))

	seedClaim(t, store, "c1", "camp-1", claim.StatusPaid, "1")
	require.NoError(t, store.AppendMetricsSnapshot(ctx, &claim.MetricsSnapshot{ClaimID: "c1", ContentID: "1", Likes: 12}))

	client.EXPECT().ListCampaigns(gomock.Any(), true).Return([]ledger.CampaignAccount{
		{Address: "camp-1", Hashtag: "x402", RewardPerEngagement: 5, IsComplete: true},
	}, nil).Times(2)

	var releases atomic.Int32
	client.EXPECT().ReleasePayment(gomock.Any(), "camp-1", "shiller-c1", uint64(12)).
		DoAndReturn(func(ctx context.Context, campaign, shiller string, engagements uint64) (*ledger.Receipt, error) {
			releases.Add(1)
			time.Sleep(100 * time.Millisecond)
			return &ledger.Receipt{Signature: "bonus-sig"}, nil
		}).AnyTimes()

	s := NewDistributionScanner(DistributionParams{Ledger: client, Store: store})

	var g errgroup.Group
	for range 2 {
		g.Go(func() error { return s.Scan(ctx) })
	}
	require.NoError(t, g.Wait())

	require.Equal(t, int32(1), releases.Load())

	payouts, err := store.ListPayouts(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	require.Equal(t, "bonus-sig", payouts[0].TxSignature)
	require.Equal(t, int64(60), payouts[0].AmountAtomic)
}

func TestDistributionKeepsReservationOnTimeout(t *testing.T) {
	ctx := context.Background()
	store := newScannerStore(t)
	client := mocks.NewMockClient(gomock.NewController(t))

	seedClaim(t, store, "c1", "camp-1", claim.StatusPaid, "1")
	require.NoError(t, store.AppendMetricsSnapshot(ctx, &claim.MetricsSnapshot{ClaimID: "c1", ContentID: "1", Likes: 3}))

	client.EXPECT().ListCampaigns(gomock.Any(), true).Return([]ledger.CampaignAccount{
		{Address: "camp-1", Hashtag: "x402", RewardPerEngagement: 1, IsComplete: true},
	}, nil).Times(2)
	client.EXPECT().ReleasePayment(gomock.Any(), "camp-1", "shiller-c1", uint64(3)).
		Return(nil, errutil.Timeout("confirm release_payment", context.DeadlineExceeded)).
		Times(1)

	s := NewDistributionScanner(DistributionParams{Ledger: client, Store: store})
	require.NoError(t, s.Scan(ctx))
	require.NoError(t, s.Scan(ctx))

	held, err := store.GetReservation(ctx, "c1", claim.PayoutBonus)
	require.NoError(t, err)
	require.NotNil(t, held)
	require.False(t, held.Released())

	none, err := store.GetPayout(ctx, "c1", claim.PayoutBonus)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestDistributionRecordsReleasedReservation(t *testing.T) {
	ctx := context.Background()
	store := newScannerStore(t)
	client := mocks.NewMockClient(gomock.NewController(t))

	seedClaim(t, store, "c1", "camp-1", claim.StatusPaid, "1")
	require.NoError(t, store.AppendMetricsSnapshot(ctx, &claim.MetricsSnapshot{ClaimID: "c1", ContentID: "1", Likes: 3}))

	// released on-chain by an earlier scan that failed to write the payout
	reserved, err := store.ReservePayout(ctx, &claim.PayoutReservation{ClaimID: "c1", Kind: claim.PayoutBonus, AmountAtomic: 30})
	require.NoError(t, err)
	require.True(t, reserved)
	require.NoError(t, store.MarkReleased(ctx, "c1", claim.PayoutBonus, "earlier-sig"))

	client.EXPECT().ListCampaigns(gomock.Any(), true).Return([]ledger.CampaignAccount{
		{Address: "camp-1", Hashtag: "x402", RewardPerEngagement: 10, IsComplete: true},
	}, nil)

	s := NewDistributionScanner(DistributionParams{Ledger: client, Store: store})
	require.NoError(t, s.Scan(ctx))

	bonus, err := store.GetPayout(ctx, "c1", claim.PayoutBonus)
	require.NoError(t, err)
	require.NotNil(t, bonus)
	require.Equal(t, "earlier-sig", bonus.TxSignature)
	require.Equal(t, int64(30), bonus.AmountAtomic)
}

func TestReleaseUncertain(t *testing.T) {
	require.True(t, releaseUncertain(errutil.Timeout("confirm release_payment", context.DeadlineExceeded)))
	require.True(t, releaseUncertain(errutil.Transient("confirm release_payment", context.Canceled)))
	require.False(t, releaseUncertain(errutil.Transient("send release_payment", errors.New("InsufficientBudget"))))
	require.False(t, releaseUncertain(errors.New("InsufficientBudget")))
}
