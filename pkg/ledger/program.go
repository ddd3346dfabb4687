package ledger

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"regexp"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	ixSubmitOracleReport = "submit_oracle_report"
	ixPayout             = "payout"
	ixSubmitProof        = "submit_proof"
	ixReleasePayment     = "release_payment"
)

// Custom error codes raised by the campaign program.
const (
	codeUnauthorizedOracle   = 6000
	codeCampaignNotComplete  = 6001
	codeInvalidShiller       = 6002
	codeInsufficientBudget   = 6003
	codeOverflow             = 6004
	codeUnauthorized         = 6005
	codeClaimAlreadyReported = 6006
	codeClaimAlreadyPaid     = 6007
)

var (
	seedClaim = []byte("claim")

	campaignDiscriminator = discriminator("account", "Campaign")

	// is_complete sits after the discriminator, creator and four u64 fields.
	isCompleteOffset uint64 = 8 + 32 + 8*4
)

func discriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// encodeInstruction lays out instruction data as the 8 byte discriminator
// followed by the borsh encoded arguments.
func encodeInstruction(name string, args ...any) ([]byte, error) {
	buf := new(bytes.Buffer)
	d := discriminator("global", name)
	buf.Write(d[:])

	enc := bin.NewBorshEncoder(buf)
	for i, arg := range args {
		if err := enc.Encode(arg); err != nil {
			return nil, fmt.Errorf("encode %s arg %d: %w", name, i, err)
		}
	}
	return buf.Bytes(), nil
}

type campaignLayout struct {
	Creator             solana.PublicKey
	Budget              uint64
	RewardPerEngagement uint64
	GoalEngagements     uint64
	EngagementsVerified uint64
	IsComplete          bool
	Hashtag             string
	CreatedAt           int64
	Oracle              solana.PublicKey
	Bump                uint8
}

func decodeCampaign(address solana.PublicKey, data []byte) (*CampaignAccount, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], campaignDiscriminator[:]) {
		return nil, fmt.Errorf("account %s is not a campaign", address)
	}

	var layout campaignLayout
	if err := bin.NewBorshDecoder(data[8:]).Decode(&layout); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", address, err)
	}

	return &CampaignAccount{
		Address:             address.String(),
		Creator:             layout.Creator.String(),
		Oracle:              layout.Oracle.String(),
		Hashtag:             layout.Hashtag,
		BudgetAtomic:        layout.Budget,
		RewardPerEngagement: layout.RewardPerEngagement,
		GoalEngagements:     layout.GoalEngagements,
		EngagementsVerified: layout.EngagementsVerified,
		IsComplete:          layout.IsComplete,
		CreatedAt:           time.Unix(layout.CreatedAt, 0).UTC(),
	}, nil
}

func deriveClaimAddress(programID solana.PublicKey, campaign, shiller string) (solana.PublicKey, error) {
	campaignKey, err := solana.PublicKeyFromBase58(campaign)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("campaign address %q: %w", campaign, err)
	}
	shillerKey, err := solana.PublicKeyFromBase58(shiller)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("shiller address %q: %w", shiller, err)
	}

	addr, _, err := solana.FindProgramAddress(
		[][]byte{seedClaim, campaignKey.Bytes(), shillerKey.Bytes()},
		programID,
	)
	return addr, err
}

var programErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`),
	regexp.MustCompile(`Error Number: (\d+)`),
	regexp.MustCompile(`Custom:(\d+)`),
}

// programErrorCode extracts the custom program error code from a simulation
// failure or a failed transaction status.
func programErrorCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	msg := err.Error()
	for i, re := range programErrorPatterns {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		base := 10
		if i == 0 {
			base = 16
		}
		code, perr := strconv.ParseInt(m[1], base, 32)
		if perr != nil {
			continue
		}
		return int(code), true
	}
	return 0, false
}
