package pipeline

import (
	"context"

	"creator-missions/pkg/errutil"
	"creator-missions/pkg/ledger"
	"creator-missions/pkg/taskname"
	"creator-missions/services/claim"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (s *Service) HandleClaimFinalize(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload[ClaimPayload](t)
	if err != nil {
		return err
	}
	return s.FinalizeClaim(ctx, p.ClaimID)
}

// FinalizeClaim reports the approved verdict, triggers the base payout and
// marks the claim paid. Each step is skipped when an earlier attempt already
// completed it, so the stage can be retried from any point.
func (s *Service) FinalizeClaim(ctx context.Context, claimID string) error {
	ctx, span := tracer.Start(ctx, "pipeline.finalize_claim")
	defer span.End()

	log := taskLogger(taskname.ClaimFinalize, claimID)

	c, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return err
	}
	switch c.Status {
	case claim.StatusPaid:
		log.Info("claim already paid")
		return nil
	case claim.StatusApproved:
	default:
		log.Warn("claim not approved, skip finalization", zap.String("status", string(c.Status)))
		return nil
	}

	digest, err := decodeDigest(c.Digest())
	if err != nil {
		return skipRetry(errutil.Malformed("approved claim has no usable metrics digest", err))
	}

	campaign, err := s.store.GetCampaign(ctx, c.CampaignID)
	if err != nil {
		return err
	}

	claimAddress, err := s.ledger.DeriveClaimAddress(campaign.Address, c.ShillerID)
	if err != nil {
		return skipRetry(err)
	}
	log = log.With(zap.String("claim_address", claimAddress))
	span.SetAttributes(attribute.String("claim.address", claimAddress))

	report, err := s.ledger.SubmitVerificationReport(ctx, claimAddress, campaign.Address, ledger.VerdictApproved, digest)
	switch {
	case errutil.IsAlreadyProcessed(err):
		log.Info("verification report already on ledger")
	case err != nil:
		log.Error("verification report failed", zap.Error(err))
		return err
	default:
		log.Info("verification report on ledger", zap.String("signature", report.Signature))
	}

	existing, err := s.store.GetPayout(ctx, c.ID, claim.PayoutBase)
	if err != nil {
		return err
	}
	if existing == nil {
		receipt, err := s.ledger.TriggerPayout(ctx, claimAddress, campaign.Address, c.ShillerID)
		if err != nil {
			log.Error("payout failed", zap.Error(err))
			return err
		}

		amount, err := s.baseAmount(ctx, c, campaign)
		if err != nil {
			return err
		}
		if _, err := s.store.InsertPayout(ctx, &claim.Payout{
			ClaimID:      c.ID,
			Kind:         claim.PayoutBase,
			TxSignature:  receipt.Signature,
			AmountAtomic: amount,
		}); err != nil {
			return err
		}
		log.Info("payout recorded",
			zap.String("signature", receipt.Signature),
			zap.Int64("amount", amount),
			zap.Bool("already_paid", receipt.AlreadyProcessed),
		)
	}

	moved, err := s.store.TransitionStatus(ctx, c.ID, claim.StatusPaid, map[string]any{
		"onchain_claim_address": claimAddress,
	})
	if err != nil {
		return err
	}
	if moved {
		log.Info("claim paid")
	}
	return nil
}

// baseAmount is the configured base reward, or the verified engagement
// priced at the campaign rate when none is set.
func (s *Service) baseAmount(ctx context.Context, c *claim.Claim, campaign *claim.Campaign) (int64, error) {
	if c.BaseRewardAtomic > 0 {
		return c.BaseRewardAtomic, nil
	}
	snapshots, err := s.store.ListMetricsSnapshots(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	return AggregateSnapshots(snapshots).Engagements() * campaign.RewardPerEngagement, nil
}
