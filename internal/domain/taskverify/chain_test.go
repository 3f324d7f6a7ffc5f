package taskverify

import (
	"errors"
	"math/big"
	"testing"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/mocks"
	"github.com/questforge/backend/pkg/blockchain/types"
	"github.com/questforge/backend/pkg/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newChainTestFactory(reader *mocks.EvidenceReader) Factory {
	return NewFactory(
		reader,
		nil,
		nil,
		repository.NewPrerequisiteRepository(),
		repository.NewProgressRepository(),
		repository.NewUserRepository(),
		repository.NewWalletRepository(),
	)
}

func Test_chainPurchaseVerifier_requiresTxHash(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	verifier, err := newChainPurchaseVerifier(ctx, newChainTestFactory(&mocks.EvidenceReader{}), testutil.Task1)
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Invalid))
	require.Equal(t, CodeTxHashRequired, result.Code)
}

func Test_chainPurchaseVerifier_eventNotFound(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	reader := &mocks.EvidenceReader{}
	reader.On("Read", mock.Anything, "testchain", "0xabc", "TokensPurchased").
		Return(nil, types.ErrEventNotFound)

	verifier, err := newChainPurchaseVerifier(ctx, newChainTestFactory(reader), testutil.Task1)
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{TxHash: "0xabc"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodeEventNotFound, result.Code)
}

func Test_chainPurchaseVerifier_failedTx(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	reader := &mocks.EvidenceReader{}
	reader.On("Read", mock.Anything, "testchain", "0xabc", "TokensPurchased").
		Return(nil, types.ErrTxNotSuccessful)

	verifier, err := newChainPurchaseVerifier(ctx, newChainTestFactory(reader), testutil.Task1)
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{TxHash: "0xabc"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodeTxFailed, result.Code)
}

func Test_chainPurchaseVerifier_rpcErrorIsRecoverable(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	reader := &mocks.EvidenceReader{}
	reader.On("Read", mock.Anything, "testchain", "0xabc", "TokensPurchased").
		Return(nil, errors.New("connection refused"))

	verifier, err := newChainPurchaseVerifier(ctx, newChainTestFactory(reader), testutil.Task1)
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{TxHash: "0xabc"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Unavailable))
	require.Equal(t, CodeRPCError, result.Code)
}

func Test_chainPurchaseVerifier_wrongWallet(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	ctx = testutil.NewMockContextWithUserID(ctx, testutil.User1.ID)

	reader := &mocks.EvidenceReader{}
	reader.On("Read", mock.Anything, "testchain", "0xabc", "TokensPurchased").
		Return(&types.Evidence{
			EventName: "TokensPurchased",
			TxHash:    "0xabc",
			From:      testutil.Wallet2.Address,
			Amount:    big.NewInt(5000),
		}, nil)

	verifier, err := newChainPurchaseVerifier(ctx, newChainTestFactory(reader), testutil.Task1)
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{TxHash: "0xabc"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodeWrongWallet, result.Code)
}

func Test_chainPurchaseVerifier_amountTooLow(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	ctx = testutil.NewMockContextWithUserID(ctx, testutil.User1.ID)

	reader := &mocks.EvidenceReader{}
	reader.On("Read", mock.Anything, "testchain", "0xabc", "TokensPurchased").
		Return(&types.Evidence{
			EventName: "TokensPurchased",
			TxHash:    "0xabc",
			From:      testutil.Wallet1.Address,
			Amount:    big.NewInt(999),
		}, nil)

	verifier, err := newChainPurchaseVerifier(ctx, newChainTestFactory(reader), testutil.Task1)
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{TxHash: "0xabc"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodeAmountTooLow, result.Code)
}

func Test_chainPurchaseVerifier_approvedMetadataIsDerived(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	ctx = testutil.NewMockContextWithUserID(ctx, testutil.User1.ID)

	reader := &mocks.EvidenceReader{}
	reader.On("Read", mock.Anything, "testchain", "0xABC", "TokensPurchased").
		Return(&types.Evidence{
			EventName:   "TokensPurchased",
			TxHash:      "0xabc",
			From:        testutil.Wallet1.Address,
			Amount:      big.NewInt(5000),
			BlockNumber: 42,
			LogIndex:    3,
		}, nil)

	verifier, err := newChainPurchaseVerifier(ctx, newChainTestFactory(reader), testutil.Task1)
	require.NoError(t, err)

	// The user submits a differently-cased locator; the persisted hash comes
	// from the receipt.
	result, err := verifier.Verify(ctx, model.VerificationPayload{TxHash: "0xABC"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
	require.Equal(t, "0xabc", result.Metadata["tx_hash"])
	require.Equal(t, "5000", result.Metadata["amount"])
	require.Equal(t, uint64(42), result.Metadata["block_number"])
}

func Test_chainStageUpgradeVerifier(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	ctx = testutil.NewMockContextWithUserID(ctx, testutil.User1.ID)

	task := entity.Task{
		Base:    entity.Base{ID: "stage-task"},
		QuestID: testutil.Quest1.ID,
		Type:    entity.TaskChainStageUpgrade,
		ValidationData: entity.Map{
			"chain":        "testchain",
			"target_stage": 3,
		},
	}

	reader := &mocks.EvidenceReader{}
	reader.On("Read", mock.Anything, "testchain", "0xlow", "StageUpgraded").
		Return(&types.Evidence{
			EventName: "StageUpgraded",
			TxHash:    "0xlow",
			From:      testutil.Wallet1.Address,
			Stage:     big.NewInt(2),
		}, nil)
	reader.On("Read", mock.Anything, "testchain", "0xok", "StageUpgraded").
		Return(&types.Evidence{
			EventName: "StageUpgraded",
			TxHash:    "0xok",
			From:      testutil.Wallet1.Address,
			Stage:     big.NewInt(3),
		}, nil)

	verifier, err := newChainStageUpgradeVerifier(ctx, newChainTestFactory(reader), task)
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{TxHash: "0xlow"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodeWrongStage, result.Code)

	result, err = verifier.Verify(ctx, model.VerificationPayload{TxHash: "0xok"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
	require.Equal(t, "3", result.Metadata["stage"])
}
