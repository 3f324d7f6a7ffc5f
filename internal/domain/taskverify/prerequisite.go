package taskverify

import (
	"context"
	"errors"
	"time"

	"github.com/questforge/backend/pkg/errorx"
	"github.com/questforge/backend/pkg/xcontext"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CheckPrerequisites decides whether a user may attempt tasks of a quest. It
// is purely a read path; a failed gate leaves no trace.
//
// Quest completion is answered from the database alone. Key ownership asks
// the chain, checking every wallet of the user concurrently and tolerating
// individual RPC failures as long as one wallet answers positively. Identity
// verification that has expired counts as not verified.
func (f Factory) CheckPrerequisites(
	ctx context.Context, userID, questID string,
) (Result, error) {
	prerequisites, err := f.prerequisiteRepo.GetByQuestID(ctx, questID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get prerequisites of quest %s: %v", questID, err)
		return Result{}, errorx.Unknown
	}

	for _, prerequisite := range prerequisites {
		if prerequisite.PrerequisiteQuestID != "" {
			result, err := f.checkQuestCompleted(ctx, userID, prerequisite.PrerequisiteQuestID)
			if err != nil || !result.Decision.Is(Approved) {
				return result, err
			}
		}

		if prerequisite.RequiresKey {
			result, err := f.checkKeyOwnership(ctx, userID, prerequisite.KeyAddress)
			if err != nil || !result.Decision.Is(Approved) {
				return result, err
			}
		}

		if prerequisite.RequiresIdentity {
			result, err := f.checkIdentity(ctx, userID)
			if err != nil || !result.Decision.Is(Approved) {
				return result, err
			}
		}
	}

	return Result{Decision: Approved}, nil
}

func (f Factory) checkQuestCompleted(
	ctx context.Context, userID, questID string,
) (Result, error) {
	progress, err := f.progressRepo.Get(ctx, userID, questID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get progress of user %s: %v", userID, err)
		return Result{}, errorx.Unknown
	}

	if progress == nil || progress.CompletedAt == nil {
		return Result{
			Decision: Rejected,
			Code:     CodePrerequisiteNotMet,
			Reason:   "A prerequisite quest has not been completed",
		}, nil
	}

	return Result{Decision: Approved}, nil
}

func (f Factory) checkKeyOwnership(
	ctx context.Context, userID, keyAddress string,
) (Result, error) {
	wallets, err := f.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get wallets of user %s: %v", userID, err)
		return Result{}, errorx.Unknown
	}

	if len(wallets) == 0 {
		return Result{
			Decision: Rejected,
			Code:     CodeKeyRequired,
			Reason:   "This quest requires holding an access key",
		}, nil
	}

	var (
		eg      errgroup.Group
		owned   = make([]bool, len(wallets))
		failed  = make([]bool, len(wallets))
		checked bool
	)

	for i, wallet := range wallets {
		i, wallet := i, wallet
		client, ok := f.ethClients[wallet.Chain]
		if !ok {
			failed[i] = true
			continue
		}

		checked = true
		eg.Go(func() error {
			balance, err := client.ERC721BalanceOf(ctx, keyAddress, wallet.Address)
			if err != nil {
				xcontext.Logger(ctx).Warnf(
					"Cannot check key balance of wallet %s: %v", wallet.Address, err)
				failed[i] = true
				return nil
			}

			owned[i] = balance.Sign() > 0
			return nil
		})
	}

	// Goroutines report through the slices, never through the error.
	_ = eg.Wait()

	for _, ok := range owned {
		if ok {
			return Result{Decision: Approved}, nil
		}
	}

	allFailed := checked
	for i := range wallets {
		if !failed[i] {
			allFailed = false
		}
	}

	if !checked || allFailed {
		return Result{
			Decision: Unavailable,
			Code:     CodeKeyCheckFailed,
			Reason:   "Key ownership could not be checked, please try again",
		}, nil
	}

	return Result{
		Decision: Rejected,
		Code:     CodeKeyRequired,
		Reason:   "This quest requires holding an access key",
	}, nil
}

func (f Factory) checkIdentity(ctx context.Context, userID string) (Result, error) {
	user, err := f.userRepo.GetByID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get user %s: %v", userID, err)
		return Result{}, errorx.Unknown
	}

	verified := user.IdentityVerified
	if verified && !user.IdentityExpiredAt.IsZero() && user.IdentityExpiredAt.Before(time.Now()) {
		verified = false
	}

	if !verified {
		return Result{
			Decision: Rejected,
			Code:     CodeIdentityRequired,
			Reason:   "This quest requires a verified identity",
		}, nil
	}

	return Result{Decision: Approved}, nil
}
