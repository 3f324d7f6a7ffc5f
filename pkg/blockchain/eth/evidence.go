package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questforge/backend/pkg/blockchain/types"
	"github.com/questforge/backend/pkg/xcontext"
)

// questEventsABI declares the quest registry events this engine decodes.
// The registry contract itself is an external collaborator.
var questEventsABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"buyer","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"}],
	 "name":"TokensPurchased","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"user","type":"address"},
		{"indexed":false,"name":"stage","type":"uint256"}],
	 "name":"StageUpgraded","type":"event"}
]`

// EvidenceReader decodes the event log backing a claimed completion.
type EvidenceReader struct {
	clients map[string]EthClient
	events  abi.ABI
}

func NewEvidenceReader(clients map[string]EthClient) (*EvidenceReader, error) {
	events, err := abi.JSON(strings.NewReader(questEventsABI))
	if err != nil {
		return nil, err
	}

	return &EvidenceReader{clients: clients, events: events}, nil
}

// Read fetches the receipt of txHash on the given chain and decodes the
// first log matching the expected event. A receipt with no matching log is
// ErrEventNotFound; the caller decides what that means for the submission.
func (r *EvidenceReader) Read(
	ctx context.Context, chain, txHash, eventName string,
) (*types.Evidence, error) {
	client, ok := r.clients[chain]
	if !ok {
		return nil, fmt.Errorf("unsupported chain %s", chain)
	}

	event, ok := r.events.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", eventName)
	}

	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, err
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, types.ErrTxNotSuccessful
	}

	for _, log := range receipt.Logs {
		if len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}

		evidence, err := r.decode(event, log)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot decode log %d of tx %s: %v", log.Index, txHash, err)
			continue
		}

		evidence.TxHash = receipt.TxHash.Hex()
		return evidence, nil
	}

	return nil, types.ErrEventNotFound
}

func (r *EvidenceReader) decode(event abi.Event, log *ethtypes.Log) (*types.Evidence, error) {
	values := map[string]any{}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
		return nil, err
	}

	indexed := abi.Arguments{}
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return nil, err
	}

	evidence := &types.Evidence{
		EventName:   event.Name,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}

	switch event.Name {
	case "TokensPurchased":
		buyer, ok := values["buyer"].(common.Address)
		if !ok {
			return nil, fmt.Errorf("missing buyer in %s", event.Name)
		}
		amount, ok := values["amount"].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("missing amount in %s", event.Name)
		}
		evidence.From = buyer.Hex()
		evidence.Amount = amount

	case "StageUpgraded":
		user, ok := values["user"].(common.Address)
		if !ok {
			return nil, fmt.Errorf("missing user in %s", event.Name)
		}
		stage, ok := values["stage"].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("missing stage in %s", event.Name)
		}
		evidence.From = user.Hex()
		evidence.Stage = stage

	default:
		return nil, fmt.Errorf("unsupported event %s", event.Name)
	}

	return evidence, nil
}
