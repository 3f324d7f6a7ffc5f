package repository_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_usedTransactionRepository_Claim(t *testing.T) {
	ctx := testutil.NewMockContext()
	repo := repository.NewUsedTransactionRepository()

	first := &entity.UsedTransaction{
		Base:         entity.Base{ID: uuid.NewString()},
		Chain:        "testchain",
		TxHash:       "0xabc",
		SubmissionID: "submission1",
		UserID:       "user1",
	}
	require.NoError(t, repo.Claim(ctx, first))

	// A second claim of the same evidence loses, whoever makes it.
	second := &entity.UsedTransaction{
		Base:         entity.Base{ID: uuid.NewString()},
		Chain:        "testchain",
		TxHash:       "0xabc",
		SubmissionID: "submission2",
		UserID:       "user2",
	}
	require.ErrorIs(t, repo.Claim(ctx, second), repository.ErrAlreadyClaimed)

	// The winner keeps the record.
	got, err := repo.GetByTxHash(ctx, "testchain", "0xabc")
	require.NoError(t, err)
	require.Equal(t, "submission1", got.SubmissionID)

	// The same hash on another chain is different evidence.
	other := &entity.UsedTransaction{
		Base:         entity.Base{ID: uuid.NewString()},
		Chain:        "otherchain",
		TxHash:       "0xabc",
		SubmissionID: "submission3",
		UserID:       "user1",
	}
	require.NoError(t, repo.Claim(ctx, other))
}
