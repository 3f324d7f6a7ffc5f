package taskverify

import (
	"context"
	"net/url"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
)

// proofVerifier is the pass-through path for proof tasks with no
// adjudication prompt configured. It checks the proof is well-formed and
// routes by the task's review flag.
type proofVerifier struct {
	requiresInput bool
	needsReview   bool
}

func newProofVerifier(ctx context.Context, factory Factory, task entity.Task) (*proofVerifier, error) {
	return &proofVerifier{
		requiresInput: task.RequiresInput,
		needsReview:   task.NeedsReview,
	}, nil
}

func (v *proofVerifier) Verify(
	ctx context.Context, payload model.VerificationPayload,
) (Result, error) {
	metadata := entity.Map{}
	if v.requiresInput {
		if payload.ProofURL == "" {
			return Result{
				Decision: Invalid,
				Code:     CodeProofURLRequired,
				Reason:   "A proof is required for this task",
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

		metadata["proof_url"] = payload.ProofURL
	}

	if v.needsReview {
		return Result{Decision: NeedsReview, Metadata: metadata}, nil
	}

	return Result{Decision: Approved, Metadata: metadata}, nil
}

// linkVerifier accepts a well-formed link and routes the submission by the
// task's review flag. No outbound request is made; whether the link proves
// anything is the reviewer's call.
type linkVerifier struct {
	needsReview bool
}

func newLinkVerifier(ctx context.Context, factory Factory, task entity.Task) (*linkVerifier, error) {
	return &linkVerifier{needsReview: task.NeedsReview}, nil
}

func (v *linkVerifier) Verify(
	ctx context.Context, payload model.VerificationPayload,
) (Result, error) {
	if payload.Link == "" {
		return Result{
			Decision: Invalid,
			Code:     CodeLinkRequired,
			Reason:   "A link is required for this task",
		}, nil
	}

	link, err := url.ParseRequestURI(payload.Link)
	if err != nil || link.Host == "" {
		return Result{
			Decision: Invalid,
			Code:     CodeLinkRequired,
			Reason:   "The link is not a valid absolute URL",
		}, nil
	}

	metadata := entity.Map{"link": payload.Link}
	if v.needsReview {
		return Result{Decision: NeedsReview, Metadata: metadata}, nil
	}

	return Result{Decision: Approved, Metadata: metadata}, nil
}

// agreementVerifier records the user's explicit acceptance. There is nothing
// to inspect; an unaccepted submission is simply malformed.
type agreementVerifier struct{}

func newAgreementVerifier(
	ctx context.Context, factory Factory, task entity.Task,
) (*agreementVerifier, error) {
	return &agreementVerifier{}, nil
}

func (v *agreementVerifier) Verify(
	ctx context.Context, payload model.VerificationPayload,
) (Result, error) {
	if !payload.Accepted {
		return Result{
			Decision: Invalid,
			Code:     CodeAgreementRequired,
			Reason:   "The agreement must be accepted for this task",
		}, nil
	}

	return Result{Decision: Approved, Metadata: entity.Map{"accepted": true}}, nil
}
