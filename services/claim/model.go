package claim

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusPaid        Status = "paid"
)

// predecessors lists, for every target status, the statuses a claim may move
// out of to reach it. Anything not listed is a backwards or sideways move.
var predecessors = map[Status][]Status{
	StatusUnderReview: {StatusPending},
	StatusApproved:    {StatusPending, StatusUnderReview},
	StatusRejected:    {StatusPending, StatusUnderReview},
	StatusPaid:        {StatusApproved},
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusRejected
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, from := range predecessors[next] {
		if from == s {
			return true
		}
	}
	return false
}

type PayoutKind string

const (
	PayoutBase  PayoutKind = "base"
	PayoutBonus PayoutKind = "bonus"
)

// Proof is the participant's evidence of engagement, captured when the claim
// is submitted.
type Proof struct {
	ContentIDs      []string `json:"contentIds"`
	Links           []string `json:"links,omitempty"`
	DisclosureFound bool     `json:"disclosureFound"`
	Hash            string   `json:"hash,omitempty"`
}

type Claim struct {
	ID                  string                    `gorm:"column:id;primaryKey;type:varchar(64)"`
	CampaignID          string                    `gorm:"column:campaign_id;index;not null"`
	ShillerID           string                    `gorm:"column:shiller_id;type:varchar(64);not null"`
	OnchainClaimAddress string                    `gorm:"column:onchain_claim_address;type:varchar(64)"`
	Status              Status                    `gorm:"column:status;type:varchar(20);index;not null;default:'pending'"`
	Proof               datatypes.JSONType[Proof] `gorm:"column:proof"`
	MetricsDigest       *string                   `gorm:"column:metrics_digest;type:char(64)"`
	BaseRewardAtomic    int64                     `gorm:"column:base_reward_atomic;not null;default:0"`
	BonusRewardAtomic   int64                     `gorm:"column:bonus_reward_atomic;not null;default:0"`
	CreatedAt           time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// Digest returns the stored metrics digest, or "" when none was written yet.
func (c *Claim) Digest() string {
	if c.MetricsDigest == nil {
		return ""
	}
	return *c.MetricsDigest
}

// Campaign mirrors the on-chain campaign account. Eligibility constraints are
// optional; a nil or empty constraint does not restrict anything.
type Campaign struct {
	ID                  string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	Address             string    `gorm:"column:address;uniqueIndex;type:varchar(64);not null"`
	Creator             string    `gorm:"column:creator;type:varchar(64)"`
	Hashtag             string    `gorm:"column:hashtag;type:varchar(64);not null"`
	GoalEngagements     int64     `gorm:"column:goal_engagements;not null;default:0"`
	RewardPerEngagement int64     `gorm:"column:reward_per_engagement;not null;default:0"`
	EngagementsVerified int64     `gorm:"column:engagements_verified;not null;default:0"`
	BudgetAtomic        int64     `gorm:"column:budget_atomic;not null;default:0"`
	IsComplete          bool      `gorm:"column:is_complete;not null;default:false"`
	MinEngagements      *int64    `gorm:"column:min_engagements"`
	MinImpressions      *int64    `gorm:"column:min_impressions"`
	EligibilityExpr     string    `gorm:"column:eligibility_expr;type:text"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// MetricsSnapshot is one fetch of public counters for one content item.
// Snapshots are append-only.
type MetricsSnapshot struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(32)"`
	ClaimID     string    `gorm:"column:claim_id;index;not null"`
	ContentID   string    `gorm:"column:content_id;type:varchar(64);not null"`
	Impressions int64     `gorm:"column:impressions;not null;default:0"`
	Likes       int64     `gorm:"column:likes;not null;default:0"`
	Replies     int64     `gorm:"column:replies;not null;default:0"`
	Quotes      int64     `gorm:"column:quotes;not null;default:0"`
	Reposts     int64     `gorm:"column:reposts;not null;default:0"`
	FetchedAt   time.Time `gorm:"column:fetched_at;not null"`
}

// Payout is written once the ledger confirmed a transfer and never changes.
type Payout struct {
	ID           string     `gorm:"column:id;primaryKey;type:varchar(32)"`
	ClaimID      string     `gorm:"column:claim_id;uniqueIndex:idx_payout_claim_kind;not null"`
	Kind         PayoutKind `gorm:"column:kind;uniqueIndex:idx_payout_claim_kind;type:varchar(10);not null"`
	TxSignature  string     `gorm:"column:tx_signature;type:varchar(100);not null"`
	AmountAtomic int64      `gorm:"column:amount_atomic;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// PayoutReservation is taken before a transfer is sent to the ledger. Only the
// writer that inserted the row may release funds for (claim, kind). The
// signature is stored as soon as the ledger confirms, so a lost Payout write
// can be recorded later without a second transfer.
type PayoutReservation struct {
	ClaimID      string     `gorm:"column:claim_id;primaryKey;type:varchar(64)"`
	Kind         PayoutKind `gorm:"column:kind;primaryKey;type:varchar(10)"`
	TxSignature  string     `gorm:"column:tx_signature;type:varchar(100);not null;default:''"`
	AmountAtomic int64      `gorm:"column:amount_atomic;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Released reports whether the ledger confirmed the reserved transfer.
func (r *PayoutReservation) Released() bool {
	return r.TxSignature != ""
}

func Models() []any {
	return []any{&Campaign{}, &Claim{}, &MetricsSnapshot{}, &Payout{}, &PayoutReservation{}}
}
