package claim

import (
	"context"
	"errors"
	"time"

	"creator-missions/pkg/db/option"
	"creator-missions/pkg/errutil"
	"creator-missions/pkg/metrics"
	"creator-missions/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidTransition = errors.New("invalid claim status transition")

// Store is the durable record of campaigns, claims, snapshots and payouts.
// Every write touches only the fields owned by the caller and is guarded so
// that a replayed job cannot move a claim backwards.
type Store struct {
	db   *gorm.DB
	node *snowflake.Node
	now  func() time.Time

	claims    repository.Repository[Claim]
	campaigns repository.Repository[Campaign]
	snapshots repository.Repository[MetricsSnapshot]
	payouts   repository.Repository[Payout]
	reserved  repository.Repository[PayoutReservation]
}

type StoreParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewStore(p StoreParams) *Store {
	return &Store{
		db:        p.DB,
		node:      p.Node,
		now:       time.Now,
		claims:    repository.ProvideStore[Claim](p.DB),
		campaigns: repository.ProvideStore[Campaign](p.DB),
		snapshots: repository.ProvideStore[MetricsSnapshot](p.DB),
		payouts:   repository.ProvideStore[Payout](p.DB),
		reserved:  repository.ProvideStore[PayoutReservation](p.DB),
	}
}

func (s *Store) GetClaim(ctx context.Context, claimID string) (*Claim, error) {
	c, err := s.claims.FindOne(ctx, &Claim{ID: claimID})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errutil.NotFound("claim not found", nil, errutil.WithDetails(errutil.Detail{Field: "claim_id", Message: claimID}))
	}
	return c, nil
}

func (s *Store) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	c, err := s.campaigns.FindOne(ctx, &Campaign{ID: campaignID})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errutil.NotFound("campaign not found", nil, errutil.WithDetails(errutil.Detail{Field: "campaign_id", Message: campaignID}))
	}
	return c, nil
}

// CreateClaim registers a claim submitted outside the pipeline. New claims
// always start in pending.
func (s *Store) CreateClaim(ctx context.Context, c *Claim) error {
	c.Status = StatusPending
	c.MetricsDigest = nil
	return s.claims.Create(ctx, c)
}

// MirrorCampaign upserts the ledger view of a campaign, keyed by address.
// Eligibility constraints are left untouched on existing rows.
func (s *Store) MirrorCampaign(ctx context.Context, c *Campaign) error {
	if c.ID == "" {
		c.ID = c.Address
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"goal_engagements",
			"reward_per_engagement",
			"engagements_verified",
			"budget_atomic",
			"is_complete",
			"updated_at",
		}),
	}).Create(c).Error
}

func (s *Store) AppendMetricsSnapshot(ctx context.Context, snap *MetricsSnapshot) error {
	if snap.ID == "" {
		snap.ID = s.node.Generate().String()
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = s.now()
	}
	return s.snapshots.Create(ctx, snap)
}

// ListMetricsSnapshots returns snapshots oldest first. Snapshots fetched in
// the same instant keep insertion order through their snowflake ids.
func (s *Store) ListMetricsSnapshots(ctx context.Context, claimID string) ([]*MetricsSnapshot, error) {
	return s.snapshots.Find(ctx, &MetricsSnapshot{ClaimID: claimID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "fetched_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"fetched_at": true},
		}),
	)
}

// SetMetricsDigest writes the digest only when none is stored yet, and moves
// a pending claim to under_review in the same transaction. It reports
// whether this call wrote the digest.
func (s *Store) SetMetricsDigest(ctx context.Context, claimID, digest string) (bool, error) {
	var written bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()

		res := tx.Model(&Claim{}).
			Where("id = ? AND metrics_digest IS NULL", claimID).
			Updates(map[string]any{
				"metrics_digest": digest,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		written = res.RowsAffected > 0

		res = tx.Model(&Claim{}).
			Where("id = ? AND status = ?", claimID, StatusPending).
			Updates(map[string]any{
				"status":     StatusUnderReview,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			metrics.ClaimTransitions.WithLabelValues(string(StatusUnderReview)).Inc()
		}
		return nil
	})
	return written, err
}

// TransitionStatus moves the claim to `to` if its current status is an
// allowed predecessor. A guard miss is reported as (false, nil). Extra
// columns are written in the same statement.
func (s *Store) TransitionStatus(ctx context.Context, claimID string, to Status, extra map[string]any) (bool, error) {
	from, ok := predecessors[to]
	if !ok {
		return false, ErrInvalidTransition
	}

	updates := map[string]any{}
	for k, v := range extra {
		updates[k] = v
	}
	updates["status"] = to
	updates["updated_at"] = s.now()

	res := s.db.WithContext(ctx).Model(&Claim{}).
		Where("id = ?", claimID).
		Scopes(option.ApplyOperator(option.Condition{Field: "status", Operator: option.IN, Value: from})).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	metrics.ClaimTransitions.WithLabelValues(string(to)).Inc()
	return true, nil
}

// InsertPayout records a confirmed transfer. At most one payout exists per
// (claim, kind); a second insert is a no-op reported as false.
func (s *Store) InsertPayout(ctx context.Context, p *Payout) (bool, error) {
	if p.ID == "" {
		p.ID = s.node.Generate().String()
	}
	created, err := s.payouts.CreateIgnoreConflict(ctx, p)
	if err != nil {
		return false, err
	}
	if created {
		metrics.PayoutsRecorded.WithLabelValues(string(p.Kind)).Inc()
	}
	return created, nil
}

// GetPayout returns nil when no payout of that kind exists.
func (s *Store) GetPayout(ctx context.Context, claimID string, kind PayoutKind) (*Payout, error) {
	return s.payouts.FindOne(ctx, &Payout{ClaimID: claimID, Kind: kind})
}

// ReservePayout takes the (claim, kind) reservation. It reports false when
// another writer already holds it.
func (s *Store) ReservePayout(ctx context.Context, r *PayoutReservation) (bool, error) {
	return s.reserved.CreateIgnoreConflict(ctx, r)
}

// GetReservation returns nil when no reservation is held.
func (s *Store) GetReservation(ctx context.Context, claimID string, kind PayoutKind) (*PayoutReservation, error) {
	return s.reserved.FindOne(ctx, &PayoutReservation{ClaimID: claimID, Kind: kind})
}

// MarkReleased stores the confirmed signature on an open reservation. A
// reservation that already carries a signature is left as is.
func (s *Store) MarkReleased(ctx context.Context, claimID string, kind PayoutKind, signature string) error {
	return s.db.WithContext(ctx).Model(&PayoutReservation{}).
		Where("claim_id = ? AND kind = ? AND tx_signature = ''", claimID, kind).
		Updates(map[string]any{
			"tx_signature": signature,
			"updated_at":   s.now(),
		}).Error
}

// CancelReservation drops a reservation whose transfer never reached the
// ledger. Released reservations are kept.
func (s *Store) CancelReservation(ctx context.Context, claimID string, kind PayoutKind) error {
	return s.db.WithContext(ctx).
		Where("claim_id = ? AND kind = ? AND tx_signature = ''", claimID, kind).
		Delete(&PayoutReservation{}).Error
}

func (s *Store) ListPayouts(ctx context.Context, claimID string) ([]*Payout, error) {
	return s.payouts.Find(ctx, &Payout{ClaimID: claimID},
		option.WithSortBy(option.QuerySortBy{OrderBy: "asc"}),
	)
}

func (s *Store) ListClaimsByStatus(ctx context.Context, campaignID string, status Status, limit int) ([]*Claim, error) {
	return s.claims.Find(ctx, &Claim{CampaignID: campaignID, Status: status},
		option.WithSortBy(option.QuerySortBy{OrderBy: "asc"}),
		option.WithLimit(limit),
	)
}
