package eth

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/questforge/backend/config"
	"github.com/questforge/backend/pkg/xcontext"
)

const (
	RpcTimeOut       = time.Second * 5
	waitMinedPolling = time.Second * 2
)

// A wrapper around ethclient so the domain can be tested against mocks.
type EthClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	WaitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	ERC721BalanceOf(ctx context.Context, contractAddress, accountAddress string) (*big.Int, error)
	ChainID() *big.Int
}

var erc721ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// Default implementation of the ETH client. Since eth RPC is often unstable,
// this client keeps a list of RPC urls and spreads calls over the ones that
// answer.
type defaultEthClient struct {
	chain   string
	chainID *big.Int
	rpcs    []string

	mutex   sync.Mutex
	clients map[string]*ethclient.Client

	balanceOfABI abi.ABI
}

func NewEthClient(cfg config.ChainConfigs) (*defaultEthClient, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, err
	}

	return &defaultEthClient{
		chain:        cfg.Chain,
		chainID:      big.NewInt(cfg.ChainID),
		rpcs:         cfg.RPCs,
		clients:      make(map[string]*ethclient.Client),
		balanceOfABI: parsed,
	}, nil
}

func (c *defaultEthClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *defaultEthClient) client(rpc string) (*ethclient.Client, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if client, ok := c.clients[rpc]; ok {
		return client, nil
	}

	client, err := ethclient.Dial(rpc)
	if err != nil {
		return nil, err
	}

	c.clients[rpc] = client
	return client, nil
}

// execute tries every configured RPC in a random order and returns the first
// answer.
func (c *defaultEthClient) execute(
	ctx context.Context, f func(context.Context, *ethclient.Client) (any, error),
) (any, error) {
	var lastErr error
	for _, i := range rand.Perm(len(c.rpcs)) {
		client, err := c.client(c.rpcs[i])
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot dial rpc %s: %v", c.rpcs[i], err)
			lastErr = err
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		result, err := f(callCtx, client)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		return result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no rpc configured for chain %s", c.chain)
	}

	return nil, lastErr
}

func (c *defaultEthClient) TransactionReceipt(
	ctx context.Context, txHash common.Hash,
) (*ethtypes.Receipt, error) {
	receipt, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.TransactionReceipt(ctx, txHash)
	})
	if err != nil {
		return nil, err
	}

	return receipt.(*ethtypes.Receipt), nil
}

func (c *defaultEthClient) CallContract(
	ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int,
) ([]byte, error) {
	result, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.CallContract(ctx, msg, blockNumber)
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

func (c *defaultEthClient) PendingNonceAt(
	ctx context.Context, account common.Address,
) (uint64, error) {
	nonce, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.PendingNonceAt(ctx, account)
	})
	if err != nil {
		return 0, err
	}

	return nonce.(uint64), nil
}

func (c *defaultEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, err
	}

	return price.(*big.Int), nil
}

func (c *defaultEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	_, err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) (any, error) {
		return nil, client.SendTransaction(ctx, tx)
	})
	return err
}

// WaitMined polls for the receipt until the context expires.
func (c *defaultEthClient) WaitMined(
	ctx context.Context, txHash common.Hash,
) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(waitMinedPolling)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *defaultEthClient) ERC721BalanceOf(
	ctx context.Context, contractAddress, accountAddress string,
) (*big.Int, error) {
	data, err := c.balanceOfABI.Pack("balanceOf", common.HexToAddress(accountAddress))
	if err != nil {
		return nil, err
	}

	contract := common.HexToAddress(contractAddress)
	result, err := c.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	outputs, err := c.balanceOfABI.Unpack("balanceOf", result)
	if err != nil {
		return nil, err
	}

	if len(outputs) != 1 {
		return nil, fmt.Errorf("invalid balanceOf output of contract %s", contractAddress)
	}

	balance, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("invalid balanceOf output type %T", outputs[0])
	}

	return balance, nil
}
