package repository

import (
	"context"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

// ErrAlreadyClaimed is returned when the transaction hash already backs a
// completion somewhere in the system.
type alreadyClaimedError struct{}

func (alreadyClaimedError) Error() string {
	return "transaction hash has already been claimed"
}

var ErrAlreadyClaimed error = alreadyClaimedError{}

type UsedTransactionRepository interface {
	// Claim atomically reserves (chain, tx_hash) for one submission. It is a
	// single conditional insert; two racing claims have exactly one winner.
	Claim(context.Context, *entity.UsedTransaction) error
	GetByTxHash(ctx context.Context, chain, txHash string) (*entity.UsedTransaction, error)
}

type usedTransactionRepository struct{}

func NewUsedTransactionRepository() UsedTransactionRepository {
	return &usedTransactionRepository{}
}

func (r *usedTransactionRepository) Claim(ctx context.Context, data *entity.UsedTransaction) error {
	tx := xcontext.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(data)
	if err := tx.Error; err != nil {
		return err
	}

	if tx.RowsAffected == 0 {
		return ErrAlreadyClaimed
	}

	return nil
}

func (r *usedTransactionRepository) GetByTxHash(
	ctx context.Context, chain, txHash string,
) (*entity.UsedTransaction, error) {
	result := &entity.UsedTransaction{}
	if err := xcontext.DB(ctx).
		Take(result, "chain=? AND tx_hash=?", chain, txHash).Error; err != nil {
		return nil, err
	}

	return result, nil
}
