package taskverify

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/mocks"
	"github.com/questforge/backend/pkg/blockchain/eth"
	"github.com/questforge/backend/pkg/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGateFactory(clients map[string]eth.EthClient) Factory {
	return NewFactory(
		nil,
		nil,
		clients,
		repository.NewPrerequisiteRepository(),
		repository.NewProgressRepository(),
		repository.NewUserRepository(),
		repository.NewWalletRepository(),
	)
}

func Test_CheckPrerequisites_noPrerequisites(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	result, err := newGateFactory(nil).CheckPrerequisites(ctx, testutil.User1.ID, testutil.Quest1.ID)
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
}

func Test_CheckPrerequisites_questNotCompleted(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	result, err := newGateFactory(nil).CheckPrerequisites(ctx, testutil.User1.ID, testutil.Quest2.ID)
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodePrerequisiteNotMet, result.Code)
}

func Test_CheckPrerequisites_questCompleted(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	now := time.Now()
	err := repository.NewProgressRepository().Create(ctx, &entity.QuestProgress{
		Base:        entity.Base{ID: "progress1"},
		UserID:      testutil.User1.ID,
		QuestID:     testutil.Quest1.ID,
		CompletedAt: &now,
	})
	require.NoError(t, err)

	result, err := newGateFactory(nil).CheckPrerequisites(ctx, testutil.User1.ID, testutil.Quest2.ID)
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
}

func Test_CheckPrerequisites_enrolledButUnfinishedDoesNotCount(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	err := repository.NewProgressRepository().Create(ctx, &entity.QuestProgress{
		Base:    entity.Base{ID: "progress1"},
		UserID:  testutil.User1.ID,
		QuestID: testutil.Quest1.ID,
	})
	require.NoError(t, err)

	result, err := newGateFactory(nil).CheckPrerequisites(ctx, testutil.User1.ID, testutil.Quest2.ID)
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodePrerequisiteNotMet, result.Code)
}

func insertKeyQuest(t *testing.T, ctx context.Context) (questID, keyAddress string) {
	questID = "key-quest"
	keyAddress = "0x00000000000000000000000000000000000000ef"

	err := repository.NewQuestRepository().Create(ctx, &entity.Quest{
		Base:   entity.Base{ID: questID},
		Title:  "Key quest",
		Status: entity.QuestActive,
	})
	require.NoError(t, err)

	err = repository.NewPrerequisiteRepository().Create(ctx, &entity.QuestPrerequisite{
		Base:        entity.Base{ID: "key-prerequisite"},
		QuestID:     questID,
		KeyAddress:  keyAddress,
		RequiresKey: true,
	})
	require.NoError(t, err)

	return questID, keyAddress
}

func Test_CheckPrerequisites_keyOwned(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	questID, keyAddress := insertKeyQuest(t, ctx)

	client := &mocks.EthClient{}
	client.On("ERC721BalanceOf", mock.Anything, keyAddress, testutil.Wallet1.Address).
		Return(big.NewInt(1), nil)

	factory := newGateFactory(map[string]eth.EthClient{"testchain": client})
	result, err := factory.CheckPrerequisites(ctx, testutil.User1.ID, questID)
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
}

func Test_CheckPrerequisites_keyNotOwned(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	questID, keyAddress := insertKeyQuest(t, ctx)

	client := &mocks.EthClient{}
	client.On("ERC721BalanceOf", mock.Anything, keyAddress, testutil.Wallet1.Address).
		Return(big.NewInt(0), nil)

	factory := newGateFactory(map[string]eth.EthClient{"testchain": client})
	result, err := factory.CheckPrerequisites(ctx, testutil.User1.ID, questID)
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodeKeyRequired, result.Code)
}

func Test_CheckPrerequisites_keyCheckAllRPCsFailed(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)
	questID, keyAddress := insertKeyQuest(t, ctx)

	client := &mocks.EthClient{}
	client.On("ERC721BalanceOf", mock.Anything, keyAddress, testutil.Wallet1.Address).
		Return(nil, errors.New("connection refused"))

	factory := newGateFactory(map[string]eth.EthClient{"testchain": client})
	result, err := factory.CheckPrerequisites(ctx, testutil.User1.ID, questID)
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Unavailable))
	require.Equal(t, CodeKeyCheckFailed, result.Code)
}

func Test_CheckPrerequisites_identity(t *testing.T) {
	ctx := testutil.NewMockContext()
	testutil.CreateFixtureDb(ctx)

	err := repository.NewQuestRepository().Create(ctx, &entity.Quest{
		Base:   entity.Base{ID: "identity-quest"},
		Title:  "Identity quest",
		Status: entity.QuestActive,
	})
	require.NoError(t, err)

	err = repository.NewPrerequisiteRepository().Create(ctx, &entity.QuestPrerequisite{
		Base:             entity.Base{ID: "identity-prerequisite"},
		QuestID:          "identity-quest",
		RequiresIdentity: true,
	})
	require.NoError(t, err)

	factory := newGateFactory(nil)

	// User1 holds a valid identity.
	result, err := factory.CheckPrerequisites(ctx, testutil.User1.ID, "identity-quest")
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))

	// User2 never verified.
	result, err = factory.CheckPrerequisites(ctx, testutil.User2.ID, "identity-quest")
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodeIdentityRequired, result.Code)

	// An expired verification counts as unverified.
	err = repository.NewUserRepository().Create(ctx, &entity.User{
		Base:              entity.Base{ID: "user3"},
		Name:              "user3",
		IdentityVerified:  true,
		IdentityExpiredAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	result, err = factory.CheckPrerequisites(ctx, "user3", "identity-quest")
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Rejected))
	require.Equal(t, CodeIdentityRequired, result.Code)
}
