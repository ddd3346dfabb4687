package pipeline

import (
	"context"

	"creator-missions/pkg/errutil"
	"creator-missions/pkg/taskname"
	"creator-missions/services/claim"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (s *Service) HandleMetricsFetch(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload[MetricsFetchPayload](t)
	if err != nil {
		return err
	}
	return s.FetchMetrics(ctx, p)
}

// FetchMetrics snapshots the public counters of every content item on the
// claim, writes the digest if none is stored yet and hands the claim to
// validation. Items that fail to fetch are skipped; the job fails only when
// none could be fetched.
func (s *Service) FetchMetrics(ctx context.Context, p MetricsFetchPayload) error {
	ctx, span := tracer.Start(ctx, "pipeline.fetch_metrics")
	defer span.End()

	log := taskLogger(taskname.MetricsFetch, p.ClaimID)

	c, err := s.loadClaim(ctx, p.ClaimID)
	if err != nil {
		return err
	}
	if c.Status.Terminal() {
		log.Info("claim already settled, skip metrics", zap.String("status", string(c.Status)))
		return nil
	}

	contentIDs := p.ContentIDs
	if len(contentIDs) == 0 {
		contentIDs = c.Proof.Data().ContentIDs
	}
	if len(contentIDs) == 0 {
		return skipRetry(errutil.Malformed("claim has no content ids", nil))
	}
	span.SetAttributes(attribute.Int("content.count", len(contentIDs)))

	fetched := 0
	for _, id := range contentIDs {
		m, err := s.source.FetchPublicMetrics(ctx, id)
		if err != nil {
			log.Warn("skip content, metrics fetch failed", zap.String("content_id", id), zap.Error(err))
			continue
		}

		snap := &claim.MetricsSnapshot{
			ClaimID:     c.ID,
			ContentID:   id,
			Impressions: m.Impressions,
			Likes:       m.Likes,
			Replies:     m.Replies,
			Quotes:      m.Quotes,
			Reposts:     m.Reposts,
			FetchedAt:   s.now(),
		}
		if err := s.store.AppendMetricsSnapshot(ctx, snap); err != nil {
			return err
		}
		fetched++
	}

	if fetched == 0 {
		return errutil.Transient("no content metrics could be fetched", nil)
	}

	snapshots, err := s.store.ListMetricsSnapshots(ctx, c.ID)
	if err != nil {
		return err
	}
	agg := AggregateSnapshots(snapshots)

	digest, err := Digest(agg.PublicMetrics)
	if err != nil {
		return errutil.Internal("compute metrics digest", err)
	}

	written, err := s.store.SetMetricsDigest(ctx, c.ID, digest)
	if err != nil {
		return err
	}

	log.Info("metrics aggregated",
		zap.Int("fetched", fetched),
		zap.Int("requested", len(contentIDs)),
		zap.Int64("engagements", agg.Engagements()),
		zap.Int64("impressions", agg.Impressions),
		zap.Bool("digest_written", written),
	)

	next, err := NewClaimValidateTask(c.ID)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, next, log)
}
