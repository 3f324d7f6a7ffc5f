package types

import (
	"errors"
	"math/big"
)

// Evidence is the structured view of one decoded on-chain event log.
type Evidence struct {
	EventName   string
	TxHash      string
	From        string
	Amount      *big.Int
	Stage       *big.Int
	BlockNumber uint64
	LogIndex    uint
}

// ErrEventNotFound reports a receipt containing no log matching the
// expected event signature.
var ErrEventNotFound = errors.New("no matching event in receipt")

// ErrTxNotSuccessful reports a receipt whose status is failed.
var ErrTxNotSuccessful = errors.New("transaction was not successful")
