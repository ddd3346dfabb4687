package pipeline

import (
	"context"
	"fmt"
	"strings"

	"creator-missions/pkg/celengine"
	"creator-missions/pkg/taskname"
	"creator-missions/services/claim"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Decision struct {
	Status claim.Status
	Reason string
}

func (d Decision) Approved() bool {
	return d.Status == claim.StatusApproved
}

func approve() Decision {
	return Decision{Status: claim.StatusApproved}
}

func reject(format string, args ...any) Decision {
	return Decision{Status: claim.StatusRejected, Reason: fmt.Sprintf(format, args...)}
}

// Decide is the eligibility verdict for a claim. It never fails: an
// expression that cannot be compiled or evaluated rejects the claim.
func Decide(c *claim.Claim, campaign *claim.Campaign, agg Aggregate) Decision {
	if !c.Proof.Data().DisclosureFound {
		return reject("sponsorship disclosure not found")
	}
	if campaign.MinEngagements != nil && agg.Engagements() < *campaign.MinEngagements {
		return reject("engagements %d below minimum %d", agg.Engagements(), *campaign.MinEngagements)
	}
	if campaign.MinImpressions != nil && agg.Impressions < *campaign.MinImpressions {
		return reject("impressions %d below minimum %d", agg.Impressions, *campaign.MinImpressions)
	}

	expr := strings.TrimSpace(campaign.EligibilityExpr)
	if expr == "" {
		return approve()
	}

	env, err := celengine.EligibilityEnv()
	if err != nil {
		return reject("eligibility environment unavailable: %v", err)
	}
	ok, err := celengine.Evaluate(env, expr, map[string]interface{}{
		"engagements":      agg.Engagements(),
		"impressions":      agg.Impressions,
		"likes":            agg.Likes,
		"replies":          agg.Replies,
		"quotes":           agg.Quotes,
		"reposts":          agg.Reposts,
		"content_count":    int64(agg.Contents),
		"disclosure_found": c.Proof.Data().DisclosureFound,
	})
	if err != nil {
		return reject("eligibility expression failed: %v", err)
	}
	if !ok {
		return reject("eligibility expression not satisfied")
	}
	return approve()
}

func (s *Service) HandleClaimValidate(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload[ClaimPayload](t)
	if err != nil {
		return err
	}
	return s.ValidateClaim(ctx, p.ClaimID)
}

// ValidateClaim writes approved or rejected and, on approval, enqueues
// finalization. A claim found already approved is handed to finalization
// again in case the earlier enqueue was lost.
func (s *Service) ValidateClaim(ctx context.Context, claimID string) error {
	ctx, span := tracer.Start(ctx, "pipeline.validate_claim")
	defer span.End()

	log := taskLogger(taskname.ClaimValidate, claimID)

	c, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return err
	}

	switch c.Status {
	case claim.StatusPaid, claim.StatusRejected:
		log.Info("claim already settled, skip validation", zap.String("status", string(c.Status)))
		return nil
	case claim.StatusApproved:
		log.Info("claim already approved, re-enqueue finalization")
		return s.enqueueFinalize(ctx, claimID, log)
	}

	campaign, err := s.store.GetCampaign(ctx, c.CampaignID)
	if err != nil {
		return err
	}
	snapshots, err := s.store.ListMetricsSnapshots(ctx, claimID)
	if err != nil {
		return err
	}

	decision := Decide(c, campaign, AggregateSnapshots(snapshots))
	span.SetAttributes(attribute.String("claim.decision", string(decision.Status)))

	moved, err := s.store.TransitionStatus(ctx, claimID, decision.Status, nil)
	if err != nil {
		return err
	}
	if !moved {
		log.Info("claim moved concurrently, decision not written", zap.String("decision", string(decision.Status)))
		return nil
	}

	if !decision.Approved() {
		log.Info("claim rejected", zap.String("reason", decision.Reason))
		return nil
	}

	log.Info("claim approved")
	return s.enqueueFinalize(ctx, claimID, log)
}

func (s *Service) enqueueFinalize(ctx context.Context, claimID string, log *zap.Logger) error {
	next, err := NewClaimFinalizeTask(claimID)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, next, log)
}
