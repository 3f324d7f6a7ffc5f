package taskverify

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/pkg/blockchain/types"
	"github.com/questforge/backend/pkg/errorx"
	"github.com/questforge/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// chainPurchaseVerifier checks a TokensPurchased event against the task's
// minimum amount. All facts come from the decoded receipt; the submitted
// payload contributes nothing but the transaction locator.
type chainPurchaseVerifier struct {
	Chain          string `mapstructure:"chain"`
	EventName      string `mapstructure:"event_name"`
	RequiredAmount string `mapstructure:"required_amount"`

	requiredAmount *big.Int
	factory        Factory
	walletRepo     repository.WalletRepository
}

func newChainPurchaseVerifier(
	ctx context.Context, factory Factory, task entity.Task,
) (*chainPurchaseVerifier, error) {
	verifier := chainPurchaseVerifier{
		factory:    factory,
		walletRepo: factory.walletRepo,
	}
	if err := mapstructure.Decode(task.ValidationData, &verifier); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot decode chain purchase config: %v", err)
		return nil, errorx.Unknown
	}

	if verifier.EventName == "" {
		verifier.EventName = "TokensPurchased"
	}

	verifier.requiredAmount = big.NewInt(0)
	if verifier.RequiredAmount != "" {
		amount, ok := new(big.Int).SetString(verifier.RequiredAmount, 10)
		if !ok {
			return nil, errorx.New(errorx.BadRequest,
				"Invalid required amount %s", verifier.RequiredAmount)
		}
		verifier.requiredAmount = amount
	}

	return &verifier, nil
}

func (v *chainPurchaseVerifier) Verify(
	ctx context.Context, payload model.VerificationPayload,
) (Result, error) {
	evidence, result, err := readChainEvidence(
		ctx, v.factory, v.walletRepo, v.Chain, v.EventName, payload)
	if evidence == nil {
		return result, err
	}

	if evidence.Amount == nil || evidence.Amount.Cmp(v.requiredAmount) < 0 {
		return Result{
			Decision: Rejected,
			Code:     CodeAmountTooLow,
			Reason:   "The purchased amount does not reach the task minimum",
		}, nil
	}

	return chainApproved(v.Chain, v.EventName, evidence), nil
}

// chainStageUpgradeVerifier checks a StageUpgraded event against the task's
// target stage.
type chainStageUpgradeVerifier struct {
	Chain       string `mapstructure:"chain"`
	EventName   string `mapstructure:"event_name"`
	TargetStage int64  `mapstructure:"target_stage"`

	factory    Factory
	walletRepo repository.WalletRepository
}

func newChainStageUpgradeVerifier(
	ctx context.Context, factory Factory, task entity.Task,
) (*chainStageUpgradeVerifier, error) {
	verifier := chainStageUpgradeVerifier{
		factory:    factory,
		walletRepo: factory.walletRepo,
	}
	if err := mapstructure.Decode(task.ValidationData, &verifier); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot decode stage upgrade config: %v", err)
		return nil, errorx.Unknown
	}

	if verifier.EventName == "" {
		verifier.EventName = "StageUpgraded"
	}

	return &verifier, nil
}

func (v *chainStageUpgradeVerifier) Verify(
	ctx context.Context, payload model.VerificationPayload,
) (Result, error) {
	evidence, result, err := readChainEvidence(
		ctx, v.factory, v.walletRepo, v.Chain, v.EventName, payload)
	if evidence == nil {
		return result, err
	}

	if evidence.Stage == nil || evidence.Stage.Int64() < v.TargetStage {
		return Result{
			Decision: Rejected,
			Code:     CodeWrongStage,
			Reason:   "The upgraded stage does not reach the task target",
		}, nil
	}

	return chainApproved(v.Chain, v.EventName, evidence), nil
}

// readChainEvidence is the shared front half of both chain strategies. It
// validates the locator, decodes the receipt, and checks that the event was
// emitted for one of the submitter's wallets. A nil evidence means the
// returned Result (or error) is final.
func readChainEvidence(
	ctx context.Context,
	factory Factory,
	walletRepo repository.WalletRepository,
	configChain, eventName string,
	payload model.VerificationPayload,
) (*types.Evidence, Result, error) {
	if payload.TxHash == "" {
		return nil, Result{
			Decision: Invalid,
			Code:     CodeTxHashRequired,
			Reason:   "A transaction hash is required for this task",
		}, nil
	}

	chain := configChain
	if payload.Chain != "" {
		chain = payload.Chain
	}

	evidence, err := factory.evidenceReader.Read(ctx, chain, payload.TxHash, eventName)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrEventNotFound):
			return nil, Result{
				Decision: Rejected,
				Code:     CodeEventNotFound,
				Reason:   "The transaction does not contain the expected event",
			}, nil

		case errors.Is(err, types.ErrTxNotSuccessful):
			return nil, Result{
				Decision: Rejected,
				Code:     CodeTxFailed,
				Reason:   "The transaction did not succeed",
			}, nil

		default:
			xcontext.Logger(ctx).Warnf("Cannot read evidence of tx %s: %v", payload.TxHash, err)
			return nil, Result{
				Decision: Unavailable,
				Code:     CodeRPCError,
				Reason:   "The chain is temporarily unreachable, please try again",
			}, nil
		}
	}

	userID := xcontext.RequestUserID(ctx)
	wallet, err := walletRepo.GetByAddress(ctx, userID, evidence.From)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get wallet of user %s: %v", userID, err)
		return nil, Result{}, errorx.Unknown
	}

	if wallet == nil || !strings.EqualFold(wallet.Address, evidence.From) {
		return nil, Result{
			Decision: Rejected,
			Code:     CodeWrongWallet,
			Reason:   "The transaction was not sent from one of your wallets",
		}, nil
	}

	return evidence, Result{}, nil
}

// chainApproved builds the approved result. Every metadata value is derived
// from the receipt; the user-submitted hash never appears here.
func chainApproved(chain, eventName string, evidence *types.Evidence) Result {
	metadata := entity.Map{
		"chain":        chain,
		"tx_hash":      evidence.TxHash,
		"event_name":   eventName,
		"from":         evidence.From,
		"block_number": evidence.BlockNumber,
		"log_index":    evidence.LogIndex,
		"raw_input":    nil,
	}

	if evidence.Amount != nil {
		metadata["amount"] = evidence.Amount.String()
	}

	if evidence.Stage != nil {
		metadata["stage"] = evidence.Stage.String()
	}

	return Result{Decision: Approved, Metadata: metadata}
}
