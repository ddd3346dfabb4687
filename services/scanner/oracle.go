package scanner

import (
	"context"
	"errors"
	"time"

	"creator-missions/pkg/config"
	"creator-missions/pkg/ledger"
	"creator-missions/pkg/metricsource"
	"creator-missions/pkg/task"
	"creator-missions/services/claim"
	"creator-missions/services/pipeline"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	claimBatchSize   = 200
	searchMaxResults = 100
)

// OracleScanner walks incomplete campaigns, mirrors them and seeds metrics
// jobs for claims still waiting for verification. With campaign proofs
// enabled it also reports hashtag engagement straight to the ledger.
type OracleScanner struct {
	ledger   ledger.Client
	store    *claim.Store
	queue    task.Enqueuer
	searcher metricsource.Searcher

	submitProofs bool
	window       time.Duration
	now          func() time.Time
}

type OracleParams struct {
	fx.In
	Config   *config.Config
	Ledger   ledger.Client
	Store    *claim.Store
	Queue    task.Enqueuer
	Searcher metricsource.Searcher `optional:"true"`
}

func NewOracleScanner(p OracleParams) *OracleScanner {
	window := p.Config.Oracle.SearchWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &OracleScanner{
		ledger:       p.Ledger,
		store:        p.Store,
		queue:        p.Queue,
		searcher:     p.Searcher,
		submitProofs: p.Config.Oracle.SubmitCampaignProofs && p.Searcher != nil,
		window:       window,
		now:          time.Now,
	}
}

func (s *OracleScanner) Name() string { return "oracle" }

func (s *OracleScanner) Scan(ctx context.Context) error {
	campaigns, err := s.ledger.ListCampaigns(ctx, false)
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		zap.L().Debug("no active campaigns")
		return nil
	}

	seeded := 0
	for _, campaign := range campaigns {
		log := zap.L().With(
			zap.String("scanner", s.Name()),
			zap.String("campaign", campaign.Address),
			zap.String("hashtag", campaign.Hashtag),
		)

		if err := s.store.MirrorCampaign(ctx, campaignRow(campaign)); err != nil {
			log.Error("mirror campaign failed", zap.Error(err))
			continue
		}

		n, err := s.seedPendingClaims(ctx, campaign.Address, log)
		if err != nil {
			log.Error("seed pending claims failed", zap.Error(err))
		}
		seeded += n

		if s.submitProofs {
			if err := s.submitCampaignProof(ctx, campaign, log); err != nil {
				log.Error("submit campaign proof failed", zap.Error(err))
			}
		}
	}

	zap.L().Info("oracle scan complete",
		zap.Int("campaigns", len(campaigns)),
		zap.Int("claims_seeded", seeded),
	)
	return nil
}

// seedPendingClaims enqueues one metrics job per pending claim. The task id
// is derived from the claim so a job still queued or retrying is not
// duplicated by the next tick.
func (s *OracleScanner) seedPendingClaims(ctx context.Context, campaignID string, log *zap.Logger) (int, error) {
	claims, err := s.store.ListClaimsByStatus(ctx, campaignID, claim.StatusPending, claimBatchSize)
	if err != nil {
		return 0, err
	}

	seeded := 0
	for _, c := range claims {
		t, err := pipeline.NewMetricsFetchTask(pipeline.MetricsFetchPayload{
			ClaimID:    c.ID,
			ContentIDs: c.Proof.Data().ContentIDs,
		})
		if err != nil {
			log.Warn("skip claim with invalid proof", zap.String("claim_id", c.ID), zap.Error(err))
			continue
		}

		if _, err := s.queue.Enqueue(ctx, t, asynq.TaskID("metrics-fetch:"+c.ID)); err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}

func (s *OracleScanner) submitCampaignProof(ctx context.Context, campaign ledger.CampaignAccount, log *zap.Logger) error {
	posts, err := s.searcher.SearchRecent(ctx, "#"+campaign.Hashtag, s.now().Add(-s.window), searchMaxResults)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		log.Debug("no recent posts for hashtag")
		return nil
	}

	var engagements int64
	for _, p := range posts {
		engagements += p.Metrics.Engagements()
	}
	if engagements <= 0 {
		log.Debug("recent posts have no engagement", zap.Int("posts", len(posts)))
		return nil
	}

	receipt, err := s.ledger.SubmitProof(ctx, campaign.Address, uint64(engagements), posts[0].ID)
	if err != nil {
		return err
	}
	log.Info("campaign proof submitted",
		zap.Int64("engagements", engagements),
		zap.String("content_id", posts[0].ID),
		zap.String("signature", receipt.Signature),
	)
	return nil
}
