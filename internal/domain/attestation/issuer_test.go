package attestation

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/questforge/backend/config"
	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/mocks"
	"github.com/questforge/backend/pkg/blockchain/eth"
	"github.com/questforge/backend/pkg/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func Test_schemaCodec_roundTrip(t *testing.T) {
	codec, err := newSchemaCodec()
	require.NoError(t, err)

	data := credentialData{QuestID: "quest1", TaskID: "task1", UserID: "user1"}
	encoded, err := codec.EncodeData(data)
	require.NoError(t, err)

	decoded, err := codec.DecodeData(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func Test_schemaCodec_rejectsGarbage(t *testing.T) {
	codec, err := newSchemaCodec()
	require.NoError(t, err)

	_, err = codec.DecodeData("not hex")
	require.Error(t, err)

	_, err = codec.DecodeData("0xdeadbeef")
	require.Error(t, err)
}

type issuerTestEnv struct {
	ctx       context.Context
	issuer    Issuer
	client    *mocks.EthClient
	codec     *schemaCodec
	signerKey *ecdsa.PrivateKey
	userID    string
	cfg       config.AttestationConfigs
}

func newIssuerTestEnv(t *testing.T) *issuerTestEnv {
	ctx := testutil.NewMockContext()

	signerKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signerAddress := ethcrypto.PubkeyToAddress(signerKey.PublicKey)

	userRepo := repository.NewUserRepository()
	walletRepo := repository.NewWalletRepository()
	require.NoError(t, userRepo.Create(ctx, &entity.User{
		Base: entity.Base{ID: "signer-user"},
		Name: "signer",
	}))
	require.NoError(t, walletRepo.Create(ctx, &entity.UserWallet{
		Base:    entity.Base{ID: "signer-wallet"},
		UserID:  "signer-user",
		Chain:   "testchain",
		Address: signerAddress.Hex(),
	}))

	cfg := testutil.MockConfigs().Attestation
	client := &mocks.EthClient{}
	issuer, err := NewIssuer(cfg, map[string]eth.EthClient{"testchain": client}, walletRepo)
	require.NoError(t, err)

	codec, err := newSchemaCodec()
	require.NoError(t, err)

	return &issuerTestEnv{
		ctx:       ctx,
		issuer:    issuer,
		client:    client,
		codec:     codec,
		signerKey: signerKey,
		userID:    "signer-user",
		cfg:       cfg,
	}
}

func (env *issuerTestEnv) delegated(t *testing.T, data credentialData) *model.DelegatedAttestation {
	encoded, err := env.codec.EncodeData(data)
	require.NoError(t, err)

	deadline := uint64(time.Now().Add(time.Hour).Unix())
	hash := accounts.TextHash([]byte(SigningMessage(env.cfg.SchemaUID, encoded, deadline)))
	signature, err := ethcrypto.Sign(hash, env.signerKey)
	require.NoError(t, err)

	// Wallets usually report V as 27 or 28.
	signature[64] += 27

	return &model.DelegatedAttestation{
		Signer:    ethcrypto.PubkeyToAddress(env.signerKey.PublicKey).Hex(),
		SchemaUID: env.cfg.SchemaUID,
		Data:      encoded,
		Deadline:  deadline,
		Signature: hexutil.Encode(signature),
	}
}

func Test_issuer_Issue(t *testing.T) {
	env := newIssuerTestEnv(t)

	uid := common.HexToHash("0xbeef000000000000000000000000000000000000000000000000000000000001")
	env.client.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(7), nil)
	env.client.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(1_000_000_000), nil)
	env.client.On("ChainID").Return(big.NewInt(1337))
	env.client.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)
	env.client.On("WaitMined", mock.Anything, mock.Anything).Return(&ethtypes.Receipt{
		Status: ethtypes.ReceiptStatusSuccessful,
		Logs: []*ethtypes.Log{
			{
				Topics: []common.Hash{
					env.codec.AttestedEvent().ID,
					common.Hash{},
					common.Hash{},
					common.HexToHash(env.cfg.SchemaUID),
				},
				Data: uid.Bytes(),
			},
		},
	}, nil)

	delegated := env.delegated(t, credentialData{
		QuestID: "quest1", TaskID: "task1", UserID: env.userID,
	})

	credential, err := env.issuer.Issue(env.ctx, Request{
		UserID: env.userID, QuestID: "quest1", TaskID: "task1",
	}, delegated)
	require.NoError(t, err)
	require.Equal(t, uid.Hex(), credential.UID)
	require.Equal(t, env.cfg.ScanURL+uid.Hex(), credential.ScanURL)
	require.NotEmpty(t, credential.TxHash)
}

func Test_issuer_Issue_requiresSignature(t *testing.T) {
	env := newIssuerTestEnv(t)

	_, err := env.issuer.Issue(env.ctx, Request{UserID: env.userID}, nil)
	require.Error(t, err)
	require.Equal(t, "Attestation signature is required", err.Error())
}

func Test_issuer_Issue_expiredDeadline(t *testing.T) {
	env := newIssuerTestEnv(t)

	delegated := env.delegated(t, credentialData{
		QuestID: "quest1", TaskID: "task1", UserID: env.userID,
	})
	delegated.Deadline = uint64(time.Now().Add(-time.Minute).Unix())

	_, err := env.issuer.Issue(env.ctx, Request{
		UserID: env.userID, QuestID: "quest1", TaskID: "task1",
	}, delegated)
	require.Error(t, err)
	require.Equal(t, "The attestation deadline has passed", err.Error())
}

func Test_issuer_Issue_dataMustDescribeSubmission(t *testing.T) {
	env := newIssuerTestEnv(t)

	delegated := env.delegated(t, credentialData{
		QuestID: "quest1", TaskID: "task1", UserID: "somebody-else",
	})

	_, err := env.issuer.Issue(env.ctx, Request{
		UserID: env.userID, QuestID: "quest1", TaskID: "task1",
	}, delegated)
	require.Error(t, err)
	require.Equal(t, "The attestation data does not describe this submission", err.Error())
}

func Test_issuer_Issue_tamperedSignature(t *testing.T) {
	env := newIssuerTestEnv(t)

	delegated := env.delegated(t, credentialData{
		QuestID: "quest1", TaskID: "task1", UserID: env.userID,
	})
	delegated.Deadline += 1

	_, err := env.issuer.Issue(env.ctx, Request{
		UserID: env.userID, QuestID: "quest1", TaskID: "task1",
	}, delegated)
	require.Error(t, err)
}

func Test_issuer_Issue_foreignWallet(t *testing.T) {
	env := newIssuerTestEnv(t)

	// Someone else's key signs a payload describing our user.
	foreignKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	env.signerKey = foreignKey

	delegated := env.delegated(t, credentialData{
		QuestID: "quest1", TaskID: "task1", UserID: env.userID,
	})

	_, err = env.issuer.Issue(env.ctx, Request{
		UserID: env.userID, QuestID: "quest1", TaskID: "task1",
	}, delegated)
	require.Error(t, err)
	require.Equal(t, "The attestation must be signed by one of your wallets", err.Error())
}

func Test_issuer_disabled(t *testing.T) {
	issuer, err := NewIssuer(config.AttestationConfigs{Enabled: false}, nil, nil)
	require.NoError(t, err)
	require.False(t, issuer.Enabled())

	credential, err := issuer.Issue(context.Background(), Request{}, nil)
	require.NoError(t, err)
	require.Nil(t, credential)
}
