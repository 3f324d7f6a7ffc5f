package taskverify

import (
	"context"
	"fmt"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/pkg/api/vision"
	"github.com/questforge/backend/pkg/blockchain/eth"
	"github.com/questforge/backend/pkg/xcontext"
)

type Factory struct {
	evidenceReader EvidenceReader
	visionEndpoint vision.IEndpoint
	ethClients     map[string]eth.EthClient

	prerequisiteRepo repository.PrerequisiteRepository
	progressRepo     repository.ProgressRepository
	userRepo         repository.UserRepository
	walletRepo       repository.WalletRepository
}

func NewFactory(
	evidenceReader EvidenceReader,
	visionEndpoint vision.IEndpoint,
	ethClients map[string]eth.EthClient,
	prerequisiteRepo repository.PrerequisiteRepository,
	progressRepo repository.ProgressRepository,
	userRepo repository.UserRepository,
	walletRepo repository.WalletRepository,
) Factory {
	return Factory{
		evidenceReader:   evidenceReader,
		visionEndpoint:   visionEndpoint,
		ethClients:       ethClients,
		prerequisiteRepo: prerequisiteRepo,
		progressRepo:     progressRepo,
		userRepo:         userRepo,
		walletRepo:       walletRepo,
	}
}

// intrinsicMethod is what a task kind actually requires, whatever the
// author declared.
func intrinsicMethod(t entity.TaskType) entity.VerificationMethod {
	switch t {
	case entity.TaskChainPurchase, entity.TaskChainStageUpgrade:
		return entity.MethodChainEvidence
	case entity.TaskProofSubmission:
		return entity.MethodVision
	case entity.TaskSocialLink:
		return entity.MethodLink
	default:
		return entity.MethodManual
	}
}

// NewVerifier selects the strategy for a task. The dispatch key is the task
// kind; a mislabeled verification method is logged and overridden, never
// honored.
func (f Factory) NewVerifier(ctx context.Context, task entity.Task) (Verifier, error) {
	if expected := intrinsicMethod(task.Type); task.VerificationMethod != expected {
		xcontext.Logger(ctx).Warnf(
			"Task %s declares method %s but kind %s requires %s, overriding",
			task.ID, task.VerificationMethod, task.Type, expected)
	}

	switch task.Type {
	case entity.TaskChainPurchase:
		return newChainPurchaseVerifier(ctx, f, task)

	case entity.TaskChainStageUpgrade:
		return newChainStageUpgradeVerifier(ctx, f, task)

	case entity.TaskProofSubmission:
		// A proof task without an adjudication prompt falls back to the
		// pass-through path.
		if prompt, ok := task.ValidationData["ai_prompt"].(string); !ok || prompt == "" {
			return newProofVerifier(ctx, f, task)
		}

		return newVisionVerifier(ctx, f, task)

	case entity.TaskSocialLink:
		return newLinkVerifier(ctx, f, task)

	case entity.TaskAgreementSignature:
		return newAgreementVerifier(ctx, f, task)

	default:
		return nil, fmt.Errorf("invalid task type %s", task.Type)
	}
}
