package attestation

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/questforge/backend/config"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/pkg/blockchain/eth"
	"github.com/questforge/backend/pkg/errorx"
	"github.com/questforge/backend/pkg/ethutil"
	"github.com/questforge/backend/pkg/xcontext"
)

const attestGasLimit = 500_000

// Credential is the on-chain record backing a completed submission.
type Credential struct {
	UID     string
	TxHash  string
	ScanURL string
}

// Request names the submission facts a credential must attest to. Every field
// is compared against the user-signed payload before the relayer spends
// anything.
type Request struct {
	UserID  string
	QuestID string
	TaskID  string
}

// Issuer submits a user-signed credential through the relayer. The user signs
// the payload; the relayer pays the fee. The relayer never signs on the
// user's behalf.
type Issuer interface {
	// Enabled reports whether issuance is configured at all. When false,
	// completion proceeds without a credential.
	Enabled() bool

	Issue(ctx context.Context, req Request, delegated *model.DelegatedAttestation) (*Credential, error)
}

type issuer struct {
	cfg        config.AttestationConfigs
	client     eth.EthClient
	codec      *schemaCodec
	walletRepo repository.WalletRepository

	relayerKey     *ecdsa.PrivateKey
	relayerAddress common.Address
}

func NewIssuer(
	cfg config.AttestationConfigs,
	clients map[string]eth.EthClient,
	walletRepo repository.WalletRepository,
) (Issuer, error) {
	if !cfg.Enabled {
		return disabledIssuer{}, nil
	}

	client, ok := clients[cfg.Chain]
	if !ok {
		return nil, fmt.Errorf("no client configured for attestation chain %s", cfg.Chain)
	}

	codec, err := newSchemaCodec()
	if err != nil {
		return nil, err
	}

	relayerKey, err := ethutil.GeneratePrivateKey(
		[]byte(cfg.RelayerSecret), []byte(cfg.RelayerNonce))
	if err != nil {
		return nil, err
	}

	return &issuer{
		cfg:            cfg,
		client:         client,
		codec:          codec,
		walletRepo:     walletRepo,
		relayerKey:     relayerKey,
		relayerAddress: ethcrypto.PubkeyToAddress(relayerKey.PublicKey),
	}, nil
}

func (i *issuer) Enabled() bool {
	return true
}

func (i *issuer) Issue(
	ctx context.Context, req Request, delegated *model.DelegatedAttestation,
) (*Credential, error) {
	if delegated == nil || delegated.Signature == "" {
		return nil, errorx.New(errorx.BadRequest, "Attestation signature is required")
	}

	// A zero deadline means the signature never expires.
	if delegated.Deadline != 0 && delegated.Deadline <= uint64(time.Now().Unix()) {
		return nil, errorx.New(errorx.BadRequest, "The attestation deadline has passed")
	}

	if !strings.EqualFold(delegated.SchemaUID, i.cfg.SchemaUID) {
		return nil, errorx.New(errorx.BadRequest, "The attestation uses an unknown schema")
	}

	decoded, err := i.codec.DecodeData(delegated.Data)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot decode attestation data: %v", err)
		return nil, errorx.New(errorx.BadRequest, "The attestation data does not match the schema")
	}

	if decoded.UserID != req.UserID || decoded.QuestID != req.QuestID || decoded.TaskID != req.TaskID {
		return nil, errorx.New(errorx.BadRequest,
			"The attestation data does not describe this submission")
	}

	signer, err := i.recoverSigner(delegated)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot recover attestation signer: %v", err)
		return nil, errorx.New(errorx.BadRequest, "The attestation signature is invalid")
	}

	if !strings.EqualFold(signer.Hex(), delegated.Signer) {
		return nil, errorx.New(errorx.BadRequest, "The attestation signer does not match")
	}

	if _, err := i.walletRepo.GetByAddress(ctx, req.UserID, signer.Hex()); err != nil {
		return nil, errorx.New(errorx.PermissionDenied,
			"The attestation must be signed by one of your wallets")
	}

	return i.submit(ctx, signer, delegated)
}

// recoverSigner verifies the EIP-191 signature over the canonical attestation
// message.
func (i *issuer) recoverSigner(delegated *model.DelegatedAttestation) (common.Address, error) {
	signature, err := hexutil.Decode(delegated.Signature)
	if err != nil {
		return common.Address{}, err
	}

	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}

	if signature[64] == 27 || signature[64] == 28 {
		signature[64] -= 27
	}

	hash := accounts.TextHash([]byte(SigningMessage(
		delegated.SchemaUID, delegated.Data, delegated.Deadline)))
	publicKey, err := ethcrypto.SigToPub(hash, signature)
	if err != nil {
		return common.Address{}, err
	}

	return ethcrypto.PubkeyToAddress(*publicKey), nil
}

// SigningMessage is the exact text a wallet signs for a delegated
// attestation. Clients must build the same string byte for byte.
func SigningMessage(schemaUID, data string, deadline uint64) string {
	return fmt.Sprintf("attest:%s:%s:%d",
		strings.ToLower(schemaUID), strings.ToLower(data), deadline)
}

func (i *issuer) submit(
	ctx context.Context, recipient common.Address, delegated *model.DelegatedAttestation,
) (*Credential, error) {
	data, err := hexutil.Decode(delegated.Data)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "The attestation data is not valid hex")
	}

	signature, err := hexutil.Decode(delegated.Signature)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "The attestation signature is not valid hex")
	}

	calldata, err := i.codec.PackAttestByDelegation(
		common.HexToHash(i.cfg.SchemaUID), recipient, data, delegated.Deadline, signature)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot pack attestation calldata: %v", err)
		return nil, errorx.Unknown
	}

	nonce, err := i.client.PendingNonceAt(ctx, i.relayerAddress)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get relayer nonce: %v", err)
		return nil, errorx.New(errorx.Unavailable, "The credential registry is unreachable")
	}

	gasPrice, err := i.client.SuggestGasPrice(ctx)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get gas price: %v", err)
		return nil, errorx.New(errorx.Unavailable, "The credential registry is unreachable")
	}

	registry := common.HexToAddress(i.cfg.RegistryAddress)
	tx, err := ethtypes.SignNewTx(
		i.relayerKey,
		ethtypes.LatestSignerForChainID(i.client.ChainID()),
		&ethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      attestGasLimit,
			To:       &registry,
			Data:     calldata,
		},
	)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot sign attestation tx: %v", err)
		return nil, errorx.Unknown
	}

	if err := i.client.SendTransaction(ctx, tx); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot send attestation tx: %v", err)
		return nil, errorx.New(errorx.Unavailable, "The credential registry is unreachable")
	}

	confirmCtx, cancel := context.WithTimeout(ctx, i.cfg.ConfirmTimeout)
	defer cancel()

	receipt, err := i.client.WaitMined(confirmCtx, tx.Hash())
	if err != nil {
		xcontext.Logger(ctx).Warnf("Attestation tx %s not confirmed in time: %v", tx.Hash(), err)
		return nil, errorx.New(errorx.Unavailable,
			"The credential was submitted but not yet confirmed")
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, errorx.New(errorx.Internal, "The credential transaction reverted")
	}

	uid, err := i.extractUID(receipt)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot extract credential uid of tx %s: %v", tx.Hash(), err)
		return nil, errorx.New(errorx.Internal, "The credential was issued but its uid is unknown")
	}

	return &Credential{
		UID:     uid,
		TxHash:  tx.Hash().Hex(),
		ScanURL: i.cfg.ScanURL + uid,
	}, nil
}

func (i *issuer) extractUID(receipt *ethtypes.Receipt) (string, error) {
	event := i.codec.AttestedEvent()
	for _, log := range receipt.Logs {
		if len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}

		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil || len(values) != 1 {
			return "", fmt.Errorf("cannot unpack Attested log: %w", err)
		}

		uid, ok := values[0].([32]byte)
		if !ok {
			return "", fmt.Errorf("invalid uid type %T", values[0])
		}

		return hexutil.Encode(uid[:]), nil
	}

	return "", fmt.Errorf("no Attested event in receipt")
}

// disabledIssuer is used when attestation is switched off. Completion
// proceeds and no credential is recorded.
type disabledIssuer struct{}

func (disabledIssuer) Enabled() bool {
	return false
}

func (disabledIssuer) Issue(
	ctx context.Context, req Request, delegated *model.DelegatedAttestation,
) (*Credential, error) {
	return nil, nil
}
