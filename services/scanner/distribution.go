package scanner

import (
	"context"
	"errors"

	"creator-missions/pkg/errutil"
	"creator-missions/pkg/ledger"
	"creator-missions/services/claim"
	"creator-missions/services/pipeline"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const distributionParallelism = 4

// DistributionScanner pays the completion bonus on campaigns the ledger marks
// complete. Each paid claim receives at most one bonus payout.
type DistributionScanner struct {
	ledger ledger.Client
	store  *claim.Store
}

type DistributionParams struct {
	fx.In
	Ledger ledger.Client
	Store  *claim.Store
}

func NewDistributionScanner(p DistributionParams) *DistributionScanner {
	return &DistributionScanner{ledger: p.Ledger, store: p.Store}
}

func (s *DistributionScanner) Name() string { return "distribution" }

// Scan never fails because of a single campaign; those errors are logged.
func (s *DistributionScanner) Scan(ctx context.Context) error {
	campaigns, err := s.ledger.ListCampaigns(ctx, true)
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		zap.L().Debug("no completed campaigns")
		return nil
	}

	var g errgroup.Group
	g.SetLimit(distributionParallelism)
	for _, campaign := range campaigns {
		g.Go(func() error {
			log := zap.L().With(
				zap.String("scanner", s.Name()),
				zap.String("campaign", campaign.Address),
			)
			if err := s.distribute(ctx, campaign, log); err != nil {
				log.Error("campaign distribution failed", zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("distribution scan complete", zap.Int("campaigns", len(campaigns)))
	return nil
}

func (s *DistributionScanner) distribute(ctx context.Context, campaign ledger.CampaignAccount, log *zap.Logger) error {
	row := campaignRow(campaign)
	if err := s.store.MirrorCampaign(ctx, row); err != nil {
		return err
	}

	claims, err := s.store.ListClaimsByStatus(ctx, row.ID, claim.StatusPaid, claimBatchSize)
	if err != nil {
		return err
	}

	var errs []error
	for _, c := range claims {
		if err := s.payBonus(ctx, row, c, log.With(zap.String("claim_id", c.ID))); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// payBonus releases the completion bonus for one paid claim. The ledger is
// only called by the scan that took the bonus reservation, so overlapping
// scans and distributor replicas release at most once per claim.
func (s *DistributionScanner) payBonus(ctx context.Context, campaign *claim.Campaign, c *claim.Claim, log *zap.Logger) error {
	existing, err := s.store.GetPayout(ctx, c.ID, claim.PayoutBonus)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	snapshots, err := s.store.ListMetricsSnapshots(ctx, c.ID)
	if err != nil {
		return err
	}
	engagements := pipeline.AggregateSnapshots(snapshots).Engagements()
	if engagements <= 0 {
		log.Debug("no engagement, skip bonus")
		return nil
	}

	amount := c.BonusRewardAtomic
	if amount <= 0 {
		amount = engagements * campaign.RewardPerEngagement
	}

	reserved, err := s.store.ReservePayout(ctx, &claim.PayoutReservation{
		ClaimID:      c.ID,
		Kind:         claim.PayoutBonus,
		AmountAtomic: amount,
	})
	if err != nil {
		return err
	}
	if !reserved {
		return s.resumeBonus(ctx, c, log)
	}

	receipt, err := s.ledger.ReleasePayment(ctx, campaign.Address, c.ShillerID, uint64(engagements))
	if err != nil {
		log.Error("release payment failed", zap.Error(err))
		if releaseUncertain(err) {
			log.Warn("bonus reservation kept, release outcome unknown")
			return err
		}
		if cerr := s.store.CancelReservation(ctx, c.ID, claim.PayoutBonus); cerr != nil {
			log.Error("cancel bonus reservation failed", zap.Error(cerr))
		}
		return err
	}

	// funds moved; the bookkeeping must not be cut short by a stopping scan
	ctx = context.WithoutCancel(ctx)
	if err := s.store.MarkReleased(ctx, c.ID, claim.PayoutBonus, receipt.Signature); err != nil {
		log.Error("mark bonus released failed", zap.String("signature", receipt.Signature), zap.Error(err))
	}
	if err := s.recordBonus(ctx, c.ID, receipt.Signature, amount); err != nil {
		log.Error("record bonus payout failed",
			zap.String("signature", receipt.Signature),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		return err
	}

	log.Info("bonus released",
		zap.Int64("engagements", engagements),
		zap.Int64("amount", amount),
		zap.String("signature", receipt.Signature),
	)
	return nil
}

// resumeBonus handles a reservation held by someone else. A released one
// whose payout row is missing is recorded from the stored signature.
func (s *DistributionScanner) resumeBonus(ctx context.Context, c *claim.Claim, log *zap.Logger) error {
	held, err := s.store.GetReservation(ctx, c.ID, claim.PayoutBonus)
	if err != nil {
		return err
	}
	if held == nil || !held.Released() {
		log.Debug("bonus release in progress elsewhere")
		return nil
	}
	if err := s.recordBonus(ctx, c.ID, held.TxSignature, held.AmountAtomic); err != nil {
		return err
	}
	log.Info("bonus payout recorded from reservation", zap.String("signature", held.TxSignature))
	return nil
}

func (s *DistributionScanner) recordBonus(ctx context.Context, claimID, signature string, amount int64) error {
	_, err := s.store.InsertPayout(ctx, &claim.Payout{
		ClaimID:      claimID,
		Kind:         claim.PayoutBonus,
		TxSignature:  signature,
		AmountAtomic: amount,
	})
	return err
}

// releaseUncertain reports whether a failed release may still have landed.
func releaseUncertain(err error) bool {
	return errutil.StatusOf(err) == errutil.StatusTimeout || errors.Is(err, context.Canceled)
}
