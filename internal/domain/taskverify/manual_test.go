package taskverify

import (
	"context"
	"testing"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
	"github.com/stretchr/testify/require"
)

func Test_proofVerifier(t *testing.T) {
	ctx := context.Background()
	task := entity.Task{
		Base:          entity.Base{ID: "task"},
		Type:          entity.TaskProofSubmission,
		RequiresInput: true,
		NeedsReview:   true,
	}

	verifier, err := newProofVerifier(ctx, Factory{}, task)
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Invalid))
	require.Equal(t, CodeProofURLRequired, result.Code)

	result, err = verifier.Verify(ctx,
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(NeedsReview))

	// Without the review flag a well-formed proof passes straight through.
	task.NeedsReview = false
	verifier, err = newProofVerifier(ctx, Factory{}, task)
	require.NoError(t, err)

	result, err = verifier.Verify(ctx,
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
}

func Test_linkVerifier(t *testing.T) {
	ctx := context.Background()

	verifier, err := newLinkVerifier(ctx, Factory{}, entity.Task{
		Base: entity.Base{ID: "task"},
		Type: entity.TaskSocialLink,
	})
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Invalid))
	require.Equal(t, CodeLinkRequired, result.Code)

	result, err = verifier.Verify(ctx, model.VerificationPayload{Link: "nonsense"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Invalid))

	result, err = verifier.Verify(ctx,
		model.VerificationPayload{Link: "https://social.example.com/post/1"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
	require.Equal(t, "https://social.example.com/post/1", result.Metadata["link"])
}

func Test_agreementVerifier(t *testing.T) {
	ctx := context.Background()

	verifier, err := newAgreementVerifier(ctx, Factory{}, entity.Task{
		Base: entity.Base{ID: "task"},
		Type: entity.TaskAgreementSignature,
	})
	require.NoError(t, err)

	result, err := verifier.Verify(ctx, model.VerificationPayload{})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Invalid))
	require.Equal(t, CodeAgreementRequired, result.Code)

	result, err = verifier.Verify(ctx, model.VerificationPayload{Accepted: true})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
}
