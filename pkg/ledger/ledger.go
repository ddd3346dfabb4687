package ledger

//go:generate mockgen -source=ledger.go -destination=mocks/ledger_mock.go -package=mocks

import (
	"context"
	"time"
)

// Verdict is the oracle decision reported for a claim.
type Verdict uint8

const (
	VerdictRejected Verdict = 0
	VerdictApproved Verdict = 1
)

// Receipt describes a confirmed ledger instruction. AlreadyProcessed is set
// when TriggerPayout finds the payout applied by an earlier call; the
// signature is then the recovered one.
type Receipt struct {
	Signature        string
	AlreadyProcessed bool
}

// CampaignAccount is the ledger view of a campaign.
type CampaignAccount struct {
	Address             string
	Creator             string
	Oracle              string
	Hashtag             string
	BudgetAtomic        uint64
	RewardPerEngagement uint64
	GoalEngagements     uint64
	EngagementsVerified uint64
	IsComplete          bool
	CreatedAt           time.Time
}

// Client is the oracle's handle on the campaign program.
type Client interface {
	// DeriveClaimAddress is pure and never touches the network.
	DeriveClaimAddress(campaign, shiller string) (string, error)
	// SubmitVerificationReport fails with an errutil.AlreadyProcessed error
	// when the claim already carries a report.
	SubmitVerificationReport(ctx context.Context, claimAddress, campaignAddress string, verdict Verdict, digest [32]byte) (*Receipt, error)
	TriggerPayout(ctx context.Context, claimAddress, campaignAddress, shillerAddress string) (*Receipt, error)
	ListCampaigns(ctx context.Context, complete bool) ([]CampaignAccount, error)
	SubmitProof(ctx context.Context, campaignAddress string, engagements uint64, contentID string) (*Receipt, error)
	ReleasePayment(ctx context.Context, campaignAddress, shillerAddress string, engagements uint64) (*Receipt, error)
}
