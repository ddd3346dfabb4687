package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creator-missions/pkg/config"
	"creator-missions/pkg/errutil"
	"creator-missions/pkg/metrics"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("creator-missions/pkg/ledger")

var programErrorNames = map[int]string{
	codeUnauthorizedOracle:   "UnauthorizedOracle",
	codeCampaignNotComplete:  "CampaignNotComplete",
	codeInvalidShiller:       "InvalidShiller",
	codeInsufficientBudget:   "InsufficientBudget",
	codeOverflow:             "Overflow",
	codeUnauthorized:         "Unauthorized",
	codeClaimAlreadyReported: "ClaimAlreadyReported",
	codeClaimAlreadyPaid:     "ClaimAlreadyPaid",
}

// RPC is the subset of the Solana JSON-RPC client used by SolanaClient.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetSignaturesForAddressWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error)
}

type SolanaClient struct {
	rpc          RPC
	programID    solana.PublicKey
	oracle       solana.PrivateKey
	commitment   rpc.CommitmentType
	pollInterval time.Duration
}

func NewSolanaClient(cfg *config.Config) (*SolanaClient, error) {
	programID, err := solana.PublicKeyFromBase58(cfg.Solana.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid SOLANA.PROGRAM_ID: %w", err)
	}
	oracle, err := solana.PrivateKeyFromBase58(cfg.Solana.OraclePrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid SOLANA.ORACLE_PRIVATE_KEY: %w", err)
	}

	commitment := rpc.CommitmentType(cfg.Solana.Commitment)
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}

	zap.L().Info("ledger client ready",
		zap.String("rpc", cfg.Solana.RPCURL),
		zap.String("program", programID.String()),
		zap.String("oracle", oracle.PublicKey().String()),
		zap.String("commitment", string(commitment)),
	)

	return newSolanaClient(rpc.New(cfg.Solana.RPCURL), programID, oracle, commitment), nil
}

func newSolanaClient(client RPC, programID solana.PublicKey, oracle solana.PrivateKey, commitment rpc.CommitmentType) *SolanaClient {
	return &SolanaClient{
		rpc:          client,
		programID:    programID,
		oracle:       oracle,
		commitment:   commitment,
		pollInterval: 500 * time.Millisecond,
	}
}

func (c *SolanaClient) DeriveClaimAddress(campaign, shiller string) (string, error) {
	addr, err := deriveClaimAddress(c.programID, campaign, shiller)
	if err != nil {
		return "", errutil.Malformed("derive claim address", err)
	}
	return addr.String(), nil
}

func (c *SolanaClient) SubmitVerificationReport(ctx context.Context, claimAddress, campaignAddress string, verdict Verdict, digest [32]byte) (*Receipt, error) {
	claimKey, campaignKey, err := parseKeys(claimAddress, campaignAddress)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(claimKey).WRITE(),
		solana.Meta(campaignKey),
		solana.Meta(c.oracle.PublicKey()).SIGNER(),
	}

	receipt, err := c.send(ctx, ixSubmitOracleReport, accounts, uint8(verdict), digest)
	if code, ok := programErrorCode(err); ok && code == codeClaimAlreadyReported {
		return nil, errutil.AlreadyProcessed("verification report already on ledger", err)
	}
	return receipt, err
}

func (c *SolanaClient) TriggerPayout(ctx context.Context, claimAddress, campaignAddress, shillerAddress string) (*Receipt, error) {
	claimKey, campaignKey, err := parseKeys(claimAddress, campaignAddress)
	if err != nil {
		return nil, err
	}
	shillerKey, err := solana.PublicKeyFromBase58(shillerAddress)
	if err != nil {
		return nil, errutil.Malformed("shiller address", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(claimKey).WRITE(),
		solana.Meta(campaignKey).WRITE(),
		solana.Meta(shillerKey).WRITE(),
		solana.Meta(c.oracle.PublicKey()).SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}

	receipt, err := c.send(ctx, ixPayout, accounts)
	if code, ok := programErrorCode(err); ok && code == codeClaimAlreadyPaid {
		sig, rerr := c.lastSignature(ctx, claimKey)
		if rerr != nil {
			return nil, errutil.Transient("recover payout signature", rerr)
		}
		zap.L().Info("payout already on ledger",
			zap.String("claim", claimAddress),
			zap.String("signature", sig),
		)
		return &Receipt{Signature: sig, AlreadyProcessed: true}, nil
	}
	return receipt, err
}

func (c *SolanaClient) SubmitProof(ctx context.Context, campaignAddress string, engagements uint64, contentID string) (*Receipt, error) {
	campaignKey, err := solana.PublicKeyFromBase58(campaignAddress)
	if err != nil {
		return nil, errutil.Malformed("campaign address", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(campaignKey).WRITE(),
		solana.Meta(c.oracle.PublicKey()).SIGNER(),
	}
	return c.send(ctx, ixSubmitProof, accounts, engagements, contentID)
}

func (c *SolanaClient) ReleasePayment(ctx context.Context, campaignAddress, shillerAddress string, engagements uint64) (*Receipt, error) {
	campaignKey, shillerKey, err := parseKeys(campaignAddress, shillerAddress)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(campaignKey).WRITE(),
		solana.Meta(shillerKey).WRITE(),
	}
	return c.send(ctx, ixReleasePayment, accounts, shillerKey, engagements)
}

func (c *SolanaClient) ListCampaigns(ctx context.Context, complete bool) ([]CampaignAccount, error) {
	ctx, span := tracer.Start(ctx, "ledger.list_campaigns")
	defer span.End()

	flag := solana.Base58{0}
	if complete {
		flag = solana.Base58{1}
	}

	res, err := c.rpc.GetProgramAccountsWithOpts(ctx, c.programID, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(campaignDiscriminator[:])}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: isCompleteOffset, Bytes: flag}},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errutil.Transient("list campaigns", err)
	}

	campaigns := make([]CampaignAccount, 0, len(res))
	for _, keyed := range res {
		if keyed == nil || keyed.Account == nil || keyed.Account.Data == nil {
			continue
		}
		campaign, err := decodeCampaign(keyed.Pubkey, keyed.Account.Data.GetBinary())
		if err != nil {
			zap.L().Warn("skip undecodable campaign account", zap.Error(err))
			continue
		}
		if campaign.IsComplete != complete {
			continue
		}
		campaigns = append(campaigns, *campaign)
	}

	span.SetAttributes(attribute.Int("campaigns", len(campaigns)))
	return campaigns, nil
}

// send builds, signs and submits a single-instruction transaction paid by the
// oracle key, then waits for it to reach the configured commitment.
func (c *SolanaClient) send(ctx context.Context, name string, accounts solana.AccountMetaSlice, args ...any) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "ledger."+name)
	defer span.End()

	receipt, err := c.sendAndConfirm(ctx, name, accounts, args...)
	if err != nil {
		result := "error"
		if code, ok := programErrorCode(err); ok {
			if code == codeClaimAlreadyReported || code == codeClaimAlreadyPaid {
				result = "already_processed"
			}
			span.SetAttributes(attribute.String("program.error", programErrorNames[code]))
		}
		metrics.LedgerCalls.WithLabelValues(name, result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.LedgerCalls.WithLabelValues(name, "confirmed").Inc()
	span.SetAttributes(attribute.String("tx.signature", receipt.Signature))
	return receipt, nil
}

func (c *SolanaClient) sendAndConfirm(ctx context.Context, name string, accounts solana.AccountMetaSlice, args ...any) (*Receipt, error) {
	data, err := encodeInstruction(name, args...)
	if err != nil {
		return nil, errutil.Internal("encode instruction", err)
	}

	latest, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return nil, errutil.Transient("get latest blockhash", err)
	}

	payer := c.oracle.PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{solana.NewInstruction(c.programID, accounts, data)},
		latest.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, errutil.Internal("build transaction", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &c.oracle
		}
		return nil
	}); err != nil {
		return nil, errutil.Internal("sign transaction", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return nil, errutil.Transient("send "+name, err)
	}

	if err := c.confirm(ctx, sig); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errutil.Timeout("confirm "+name, err)
		}
		return nil, errutil.Transient("confirm "+name, err)
	}

	zap.L().Info("ledger instruction confirmed",
		zap.String("instruction", name),
		zap.String("signature", sig.String()),
	)
	return &Receipt{Signature: sig.String()}, nil
}

func (c *SolanaClient) confirm(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			zap.L().Debug("signature status lookup failed", zap.String("signature", sig.String()), zap.Error(err))
		} else if out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
			}
			if c.reached(status.ConfirmationStatus) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *SolanaClient) reached(status rpc.ConfirmationStatusType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return c.commitment != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return c.commitment == rpc.CommitmentProcessed
	}
	return false
}

// lastSignature returns the newest successful transaction touching account.
func (c *SolanaClient) lastSignature(ctx context.Context, account solana.PublicKey) (string, error) {
	limit := 10
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, account, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	})
	if err != nil {
		return "", err
	}
	for _, s := range sigs {
		if s != nil && s.Err == nil {
			return s.Signature.String(), nil
		}
	}
	return "", fmt.Errorf("no successful transaction found for %s", account)
}

func parseKeys(a, b string) (solana.PublicKey, solana.PublicKey, error) {
	ka, err := solana.PublicKeyFromBase58(a)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, errutil.Malformed("address "+a, err)
	}
	kb, err := solana.PublicKeyFromBase58(b)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, errutil.Malformed("address "+b, err)
	}
	return ka, kb, nil
}
