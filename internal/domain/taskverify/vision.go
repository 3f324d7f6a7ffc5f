package taskverify

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mitchellh/mapstructure"
	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/pkg/api/vision"
	"github.com/questforge/backend/pkg/errorx"
	"github.com/questforge/backend/pkg/xcontext"
)

const adjudicationFormat = `Respond with a single JSON object of the form ` +
	`{"decision": "approve" | "retry" | "defer", "confidence": <0..1>, "reason": "<short explanation>"}. ` +
	`Use "retry" when the user can fix the problem themselves and "defer" when a human should look at it.`

// visionVerifier sends the submitted proof image to the vision endpoint and
// maps its verdict onto a decision. The model proposes; the confidence floor
// and the defer rule dispose.
type visionVerifier struct {
	Prompt              string  `mapstructure:"ai_prompt"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`

	needsReview bool
	endpoint    vision.IEndpoint
}

func newVisionVerifier(
	ctx context.Context, factory Factory, task entity.Task,
) (*visionVerifier, error) {
	verifier := visionVerifier{endpoint: factory.visionEndpoint, needsReview: task.NeedsReview}
	if err := mapstructure.Decode(task.ValidationData, &verifier); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot decode vision config: %v", err)
		return nil, errorx.Unknown
	}

	if verifier.ConfidenceThreshold <= 0 || verifier.ConfidenceThreshold > 1 {
		verifier.ConfidenceThreshold = xcontext.Configs(ctx).Vision.DefaultConfidenceThreshold
	}

	return &verifier, nil
}

func (v *visionVerifier) Verify(
	ctx context.Context, payload model.VerificationPayload,
) (Result, error) {
	if payload.ProofURL == "" {
		return Result{
			Decision: Invalid,
			Code:     CodeAIImageRequired,
			Reason:   "A proof image is required for this task",
		}, nil
	}

	proofURL, err := url.ParseRequestURI(payload.ProofURL)
	if err != nil || proofURL.Host == "" {
		return Result{
			Decision: Invalid,
			Code:     CodeInvalidProofURL,
			Reason:   "The proof URL is not a valid absolute URL",
		}, nil
	}

	instruction := fmt.Sprintf("%s\n\n%s", v.Prompt, adjudicationFormat)
	raw, err := v.endpoint.Adjudicate(ctx, payload.ProofURL, instruction)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return Result{
				Decision: Unavailable,
				Code:     CodeAITimeout,
				Reason:   "The image check timed out, please try again",
			}, nil

		case errors.Is(err, context.Canceled):
			return Result{
				Decision: Unavailable,
				Code:     CodeAICancelled,
				Reason:   "The image check was cancelled",
			}, nil

		default:
			xcontext.Logger(ctx).Warnf("Vision endpoint failed: %v", err)
			return Result{
				Decision: Unavailable,
				Code:     CodeAIRequestFailed,
				Reason:   "The image check is temporarily unavailable, please try again",
			}, nil
		}
	}

	verdict, ok := parseAdjudication(raw)
	if !ok {
		xcontext.Logger(ctx).Warnf("Unparseable adjudication: %s", raw)
		return Result{
			Decision: Unavailable,
			Code:     CodeAIParseError,
			Reason:   "The image check returned an unreadable answer, please try again",
			Metadata: entity.Map{"raw_response": raw},
		}, nil
	}

	metadata := entity.Map{
		"decision":   verdict.Decision,
		"confidence": verdict.Confidence,
		"reason":     verdict.Reason,
	}

	// An approval the model itself is unsure about is not an approval.
	if verdict.Decision == verdictApprove && verdict.Confidence < v.ConfidenceThreshold {
		verdict.Decision = verdictRetry
		if verdict.Reason == "" {
			verdict.Reason = "The proof could not be confirmed with enough certainty"
		}
	}

	switch verdict.Decision {
	case verdictApprove:
		// The task can still insist a human signs off on every proof.
		if v.needsReview {
			return Result{Decision: NeedsReview, Metadata: metadata}, nil
		}

		return Result{Decision: Approved, Metadata: metadata}, nil

	case verdictRetry:
		return Result{
			Decision: Retry,
			Code:     CodeAIRetry,
			Reason:   verdict.Reason,
			Metadata: metadata,
		}, nil

	default:
		return Result{
			Decision: NeedsReview,
			Code:     CodeAIDefer,
			Reason:   verdict.Reason,
			Metadata: metadata,
		}, nil
	}
}
