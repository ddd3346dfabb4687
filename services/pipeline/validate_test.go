package pipeline

import (
	"testing"

	"creator-missions/pkg/metricsource"
	"creator-missions/services/claim"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDecide(t *testing.T) {
	agg := Aggregate{
		PublicMetrics: metricsource.PublicMetrics{Impressions: 1500, Likes: 80, Replies: 10, Quotes: 20, Reposts: 10},
		Contents:      3,
	}

	tests := []struct {
		name       string
		disclosure bool
		campaign   claim.Campaign
		want       claim.Status
	}{
		{name: "no constraints", disclosure: true, want: claim.StatusApproved},
		{name: "no disclosure", disclosure: false, want: claim.StatusRejected},
		{name: "engagement floor met", disclosure: true, campaign: claim.Campaign{MinEngagements: int64Ptr(120)}, want: claim.StatusApproved},
		{name: "engagement floor missed", disclosure: true, campaign: claim.Campaign{MinEngagements: int64Ptr(121)}, want: claim.StatusRejected},
		{name: "impression floor missed", disclosure: true, campaign: claim.Campaign{MinImpressions: int64Ptr(2000)}, want: claim.StatusRejected},
		{name: "expression true", disclosure: true, campaign: claim.Campaign{EligibilityExpr: "likes >= 50 && content_count <= 3"}, want: claim.StatusApproved},
		{name: "expression false", disclosure: true, campaign: claim.Campaign{EligibilityExpr: "reposts > 100"}, want: claim.StatusRejected},
		{name: "expression invalid", disclosure: true, campaign: claim.Campaign{EligibilityExpr: "likes >>> 1"}, want: claim.StatusRejected},
		{name: "expression not boolean", disclosure: true, campaign: claim.Campaign{EligibilityExpr: "likes + 1"}, want: claim.StatusRejected},
		{name: "blank expression", disclosure: true, campaign: claim.Campaign{EligibilityExpr: "   "}, want: claim.StatusApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &claim.Claim{Proof: datatypes.NewJSONType(claim.Proof{DisclosureFound: tt.disclosure})}
			campaign := tt.campaign

			got := Decide(c, &campaign, agg)
			require.Equal(t, tt.want, got.Status)
			if got.Status == claim.StatusRejected {
				require.NotEmpty(t, got.Reason)
			}
		})
	}
}
