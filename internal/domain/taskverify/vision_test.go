package taskverify

import (
	"context"
	"testing"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/mocks"
	"github.com/questforge/backend/pkg/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestVisionVerifier(t *testing.T, endpoint *mocks.VisionEndpoint, data entity.Map) *visionVerifier {
	ctx := testutil.NewMockContext()
	factory := NewFactory(nil, endpoint, nil, nil, nil, nil, nil)

	verifier, err := newVisionVerifier(ctx, factory, entity.Task{
		Base:           entity.Base{ID: "task"},
		Type:           entity.TaskProofSubmission,
		ValidationData: data,
	})
	require.NoError(t, err)
	return verifier
}

func Test_visionVerifier_requiresProofURL(t *testing.T) {
	verifier := newTestVisionVerifier(t, &mocks.VisionEndpoint{}, entity.Map{"ai_prompt": "check"})

	result, err := verifier.Verify(context.Background(), model.VerificationPayload{})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Invalid))
	require.Equal(t, CodeAIImageRequired, result.Code)

	result, err = verifier.Verify(context.Background(), model.VerificationPayload{ProofURL: "not a url"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Invalid))
	require.Equal(t, CodeInvalidProofURL, result.Code)
}

func Test_visionVerifier_approve(t *testing.T) {
	endpoint := &mocks.VisionEndpoint{}
	endpoint.On("Adjudicate", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"decision": "approve", "confidence": 0.95, "reason": "all good"}`, nil)

	verifier := newTestVisionVerifier(t, endpoint, entity.Map{"ai_prompt": "check"})
	result, err := verifier.Verify(context.Background(),
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
}

func Test_visionVerifier_lowConfidenceApproveBecomesRetry(t *testing.T) {
	endpoint := &mocks.VisionEndpoint{}
	endpoint.On("Adjudicate", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"decision": "approve", "confidence": 0.5, "reason": "probably fine"}`, nil)

	verifier := newTestVisionVerifier(t, endpoint, entity.Map{"ai_prompt": "check"})
	result, err := verifier.Verify(context.Background(),
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Retry))
	require.Equal(t, CodeAIRetry, result.Code)
}

func Test_visionVerifier_customThreshold(t *testing.T) {
	endpoint := &mocks.VisionEndpoint{}
	endpoint.On("Adjudicate", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"decision": "approve", "confidence": 0.5, "reason": "probably fine"}`, nil)

	verifier := newTestVisionVerifier(t, endpoint,
		entity.Map{"ai_prompt": "check", "confidence_threshold": 0.3})
	result, err := verifier.Verify(context.Background(),
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Approved))
}

func Test_visionVerifier_retryKeepsModelReason(t *testing.T) {
	endpoint := &mocks.VisionEndpoint{}
	endpoint.On("Adjudicate", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"decision": "retry", "confidence": 0.9, "reason": "the screenshot is cropped"}`, nil)

	verifier := newTestVisionVerifier(t, endpoint, entity.Map{"ai_prompt": "check"})
	result, err := verifier.Verify(context.Background(),
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Retry))
	require.Equal(t, "the screenshot is cropped", result.Reason)
}

func Test_visionVerifier_defer(t *testing.T) {
	endpoint := &mocks.VisionEndpoint{}
	endpoint.On("Adjudicate", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"decision": "defer", "confidence": 0.6, "reason": "unusual content"}`, nil)

	verifier := newTestVisionVerifier(t, endpoint, entity.Map{"ai_prompt": "check"})
	result, err := verifier.Verify(context.Background(),
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(NeedsReview))
	require.Equal(t, CodeAIDefer, result.Code)
}

func Test_visionVerifier_timeout(t *testing.T) {
	endpoint := &mocks.VisionEndpoint{}
	endpoint.On("Adjudicate", mock.Anything, mock.Anything, mock.Anything).
		Return("", context.DeadlineExceeded)

	verifier := newTestVisionVerifier(t, endpoint, entity.Map{"ai_prompt": "check"})
	result, err := verifier.Verify(context.Background(),
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Unavailable))
	require.Equal(t, CodeAITimeout, result.Code)
}

func Test_visionVerifier_unparseableAnswer(t *testing.T) {
	endpoint := &mocks.VisionEndpoint{}
	endpoint.On("Adjudicate", mock.Anything, mock.Anything, mock.Anything).
		Return("I cannot help with that.", nil)

	verifier := newTestVisionVerifier(t, endpoint, entity.Map{"ai_prompt": "check"})
	result, err := verifier.Verify(context.Background(),
		model.VerificationPayload{ProofURL: "https://img.example.com/proof.png"})
	require.NoError(t, err)
	require.True(t, result.Decision.Is(Unavailable))
	require.Equal(t, CodeAIParseError, result.Code)
	require.Equal(t, "I cannot help with that.", result.Metadata["raw_response"])
}
