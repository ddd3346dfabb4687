package scanner

import (
	"creator-missions/pkg/ledger"
	"creator-missions/services/claim"
)

// campaignRow maps the ledger view onto the stored campaign. Campaign ids are
// their ledger addresses.
func campaignRow(a ledger.CampaignAccount) *claim.Campaign {
	return &claim.Campaign{
		ID:                  a.Address,
		Address:             a.Address,
		Creator:             a.Creator,
		Hashtag:             a.Hashtag,
		GoalEngagements:     int64(a.GoalEngagements),
		RewardPerEngagement: int64(a.RewardPerEngagement),
		EngagementsVerified: int64(a.EngagementsVerified),
		BudgetAtomic:        int64(a.BudgetAtomic),
		IsComplete:          a.IsComplete,
	}
}
