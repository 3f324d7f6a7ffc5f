package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/questforge/backend/internal/domain/attestation"
	"github.com/questforge/backend/internal/domain/notification"
	"github.com/questforge/backend/internal/domain/taskverify"
	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/internal/repository"
	"github.com/questforge/backend/pkg/errorx"
	"github.com/questforge/backend/pkg/pubsub"
	"github.com/questforge/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type SubmissionDomain interface {
	Submit(ctx context.Context, req *model.SubmitTaskRequest) (*model.SubmitTaskResponse, error)
	ClaimAttestation(ctx context.Context, req *model.ClaimAttestationRequest) (*model.ClaimAttestationResponse, error)
	Review(ctx context.Context, req *model.ReviewSubmissionRequest) (*model.ReviewSubmissionResponse, error)
	GetSubmission(ctx context.Context, req *model.GetSubmissionRequest) (*model.GetSubmissionResponse, error)
	GetPendingReviewList(ctx context.Context, req *model.GetPendingReviewListRequest) (*model.GetPendingReviewListResponse, error)
}

type submissionDomain struct {
	questRepo      repository.QuestRepository
	taskRepo       repository.TaskRepository
	submissionRepo repository.SubmissionRepository
	usedTxRepo     repository.UsedTransactionRepository

	verifierFactory taskverify.Factory
	issuer          attestation.Issuer
	publisher       pubsub.Publisher
}

func NewSubmissionDomain(
	questRepo repository.QuestRepository,
	taskRepo repository.TaskRepository,
	submissionRepo repository.SubmissionRepository,
	usedTxRepo repository.UsedTransactionRepository,
	verifierFactory taskverify.Factory,
	issuer attestation.Issuer,
	publisher pubsub.Publisher,
) SubmissionDomain {
	return &submissionDomain{
		questRepo:       questRepo,
		taskRepo:        taskRepo,
		submissionRepo:  submissionRepo,
		usedTxRepo:      usedTxRepo,
		verifierFactory: verifierFactory,
		issuer:          issuer,
		publisher:       publisher,
	}
}

// Submit runs the whole pipeline for one completion attempt. Verification
// happens before anything is written; a malformed request or an unreachable
// dependency leaves no record at all.
func (d *submissionDomain) Submit(
	ctx context.Context, req *model.SubmitTaskRequest,
) (*model.SubmitTaskResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	task, err := d.taskRepo.GetByID(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found task")
		}

		xcontext.Logger(ctx).Errorf("Cannot get task %s: %v", req.TaskID, err)
		return nil, errorx.Unknown
	}

	if req.QuestID != "" && req.QuestID != task.QuestID {
		return nil, errorx.New(errorx.BadRequest, "Task does not belong to this quest")
	}

	quest, err := d.questRepo.GetByID(ctx, task.QuestID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get quest %s: %v", task.QuestID, err)
		return nil, errorx.Unknown
	}

	if quest.Status != entity.QuestActive {
		return nil, errorx.New(errorx.PermissionDenied, "Quest is not active")
	}

	gate, err := d.verifierFactory.CheckPrerequisites(ctx, userID, task.QuestID)
	if err != nil {
		return nil, err
	}

	if !gate.Decision.Is(taskverify.Approved) {
		return &model.SubmitTaskResponse{
			Success:  false,
			Code:     gate.Code,
			Feedback: gate.Reason,
		}, nil
	}

	existing, err := d.submissionRepo.GetActive(ctx, userID, task.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get active submission: %v", err)
		return nil, errorx.Unknown
	}

	if existing != nil {
		switch existing.Status {
		case entity.SubmissionCompleted:
			return &model.SubmitTaskResponse{
				Success:      false,
				Code:         taskverify.CodeAlreadyCompleted,
				SubmissionID: existing.ID,
				Status:       string(existing.Status),
				Feedback:     "This task has already been completed",
			}, nil

		case entity.SubmissionPending:
			return &model.SubmitTaskResponse{
				Success:      false,
				Code:         taskverify.CodeAlreadyPending,
				SubmissionID: existing.ID,
				Status:       string(existing.Status),
				Feedback:     "A previous attempt is still waiting for review",
			}, nil
		}
	}

	verifier, err := d.verifierFactory.NewVerifier(ctx, *task)
	if err != nil {
		return nil, err
	}

	result, err := verifier.Verify(ctx, req.Payload)
	if err != nil {
		return nil, err
	}

	// These two outcomes must leave no trace so the user can simply try
	// again.
	if result.Decision.Is(taskverify.Invalid) || result.Decision.Is(taskverify.Unavailable) {
		return &model.SubmitTaskResponse{
			Success:  false,
			Code:     result.Code,
			Feedback: result.Reason,
		}, nil
	}

	submission := existing
	if submission == nil {
		submission = &entity.TaskSubmission{
			Base:    entity.Base{ID: uuid.NewString()},
			TaskID:  task.ID,
			UserID:  userID,
			QuestID: task.QuestID,
		}
	} else {
		// A retried attempt supersedes the old one in place.
		submission.Feedback = ""
		submission.ReviewerID = ""
		submission.ReviewedAt = time.Time{}
		submission.NeedsReviewFlag = false
	}

	submission.Status = statusOf(result.Decision)
	submission.VerificationData = result.Metadata
	submission.Feedback = result.Reason
	submission.RewardClaimed = result.Decision.Is(taskverify.Approved)
	submission.NeedsReviewFlag = result.Decision.Is(taskverify.NeedsReview)

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.upsertSubmission(ctx, submission, existing != nil); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot save submission: %v", err)
		return nil, errorx.Unknown
	}

	// The evidence claim and the submission row commit or roll back together.
	// Losing the claim race means some other submission owns this
	// transaction, so nothing here may be kept.
	if result.Decision.Is(taskverify.Approved) && task.Type.IsChainEvidence() {
		chain, _ := result.Metadata["chain"].(string)
		txHash, _ := result.Metadata["tx_hash"].(string)
		err := d.usedTxRepo.Claim(ctx, &entity.UsedTransaction{
			Base:         entity.Base{ID: uuid.NewString()},
			Chain:        chain,
			TxHash:       txHash,
			SubmissionID: submission.ID,
			UserID:       userID,
		})
		if err != nil {
			xcontext.WithRollbackDBTransaction(ctx)
			if errors.Is(err, repository.ErrAlreadyClaimed) {
				return &model.SubmitTaskResponse{
					Success:  false,
					Code:     taskverify.CodeTxAlreadyUsed,
					Feedback: "This transaction already backs another completion",
				}, nil
			}

			xcontext.Logger(ctx).Errorf("Cannot claim transaction: %v", err)
			return nil, errorx.Unknown
		}
	}

	xcontext.WithCommitDBTransaction(ctx)

	switch {
	case submission.NeedsReviewFlag:
		d.notifyReviewRequested(ctx, submission, result.Reason)
	case submission.Status == entity.SubmissionCompleted:
		d.notifyCompleted(ctx, submission, task.RewardAmount, "")
	}

	return &model.SubmitTaskResponse{
		Success:        submission.Status == entity.SubmissionCompleted,
		Code:           result.Code,
		SubmissionID:   submission.ID,
		Status:         string(submission.Status),
		RewardEligible: submission.RewardClaimed,
		Feedback:       result.Reason,
	}, nil
}

func (d *submissionDomain) upsertSubmission(
	ctx context.Context, submission *entity.TaskSubmission, exists bool,
) error {
	if exists {
		return d.submissionRepo.Update(ctx, submission)
	}

	return d.submissionRepo.Create(ctx, submission)
}

func statusOf(decision taskverify.Decision) entity.SubmissionStatus {
	switch {
	case decision.Is(taskverify.Approved):
		return entity.SubmissionCompleted
	case decision.Is(taskverify.Retry):
		return entity.SubmissionRetry
	case decision.Is(taskverify.NeedsReview):
		return entity.SubmissionPending
	default:
		return entity.SubmissionFailed
	}
}

// ClaimAttestation issues the on-chain credential for a completed
// submission. Completion and attestation are independent: a failed or slow
// credential never unwinds the completed task.
func (d *submissionDomain) ClaimAttestation(
	ctx context.Context, req *model.ClaimAttestationRequest,
) (*model.ClaimAttestationResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	submission, err := d.submissionRepo.GetByID(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found submission")
		}

		xcontext.Logger(ctx).Errorf("Cannot get submission %s: %v", req.SubmissionID, err)
		return nil, errorx.Unknown
	}

	if submission.UserID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	if submission.Status != entity.SubmissionCompleted {
		return nil, errorx.New(errorx.BadRequest,
			"Only a completed submission can be attested")
	}

	if submission.AttestationUID != "" {
		return &model.ClaimAttestationResponse{
			Success:       true,
			CredentialUID: submission.AttestationUID,
			ScanURL:       xcontext.Configs(ctx).Attestation.ScanURL + submission.AttestationUID,
		}, nil
	}

	if !d.issuer.Enabled() {
		return &model.ClaimAttestationResponse{Success: true}, nil
	}

	credential, err := d.issuer.Issue(ctx, attestation.Request{
		UserID:  submission.UserID,
		QuestID: submission.QuestID,
		TaskID:  submission.TaskID,
	}, req.Attestation)
	if err != nil {
		return nil, err
	}

	submission.AttestationUID = credential.UID
	submission.AttestationTx = credential.TxHash
	if err := d.submissionRepo.Update(ctx, submission); err != nil {
		// The credential exists on chain regardless; report it and let a
		// later claim reconcile the record.
		xcontext.Logger(ctx).Errorf("Cannot record credential %s: %v", credential.UID, err)
	}

	return &model.ClaimAttestationResponse{
		Success:       true,
		CredentialUID: credential.UID,
		ScanURL:       credential.ScanURL,
	}, nil
}

// Review settles a submission waiting on a human. Approving completes it and
// grants the reward; rejecting sends it back to the user as a retry with the
// reviewer's comment.
func (d *submissionDomain) Review(
	ctx context.Context, req *model.ReviewSubmissionRequest,
) (*model.ReviewSubmissionResponse, error) {
	reviewerID := xcontext.RequestUserID(ctx)

	submission, err := d.submissionRepo.GetByID(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found submission")
		}

		xcontext.Logger(ctx).Errorf("Cannot get submission %s: %v", req.SubmissionID, err)
		return nil, errorx.Unknown
	}

	if submission.Status != entity.SubmissionPending || !submission.NeedsReviewFlag {
		return nil, errorx.New(errorx.BadRequest, "Submission is not waiting for review")
	}

	update := &entity.TaskSubmission{
		ReviewerID:      reviewerID,
		ReviewedAt:      time.Now(),
		Feedback:        req.Comment,
		NeedsReviewFlag: false,
	}

	switch req.Action {
	case "approve":
		update.Status = entity.SubmissionCompleted
		update.RewardClaimed = true

	case "reject":
		update.Status = entity.SubmissionRetry

	default:
		return nil, errorx.New(errorx.BadRequest, "Invalid review action %s", req.Action)
	}

	if err := d.submissionRepo.UpdateReviewByID(ctx, submission.ID, update); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update review of submission %s: %v", submission.ID, err)
		return nil, errorx.Unknown
	}

	if update.Status == entity.SubmissionCompleted {
		task, err := d.taskRepo.GetByID(ctx, submission.TaskID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get task %s: %v", submission.TaskID, err)
		} else {
			d.notifyCompleted(ctx, submission, task.RewardAmount, "")
		}
	}

	return &model.ReviewSubmissionResponse{Status: string(update.Status)}, nil
}

func (d *submissionDomain) GetSubmission(
	ctx context.Context, req *model.GetSubmissionRequest,
) (*model.GetSubmissionResponse, error) {
	submission, err := d.submissionRepo.GetByID(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found submission")
		}

		xcontext.Logger(ctx).Errorf("Cannot get submission %s: %v", req.SubmissionID, err)
		return nil, errorx.Unknown
	}

	if submission.UserID != xcontext.RequestUserID(ctx) {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	return &model.GetSubmissionResponse{
		SubmissionID:   submission.ID,
		TaskID:         submission.TaskID,
		QuestID:        submission.QuestID,
		Status:         string(submission.Status),
		Feedback:       submission.Feedback,
		RewardEligible: submission.RewardClaimed,
		AttestationUID: submission.AttestationUID,
	}, nil
}

func (d *submissionDomain) GetPendingReviewList(
	ctx context.Context, req *model.GetPendingReviewListRequest,
) (*model.GetPendingReviewListResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}

	submissions, err := d.submissionRepo.GetList(ctx, &repository.SubmissionFilter{
		QuestID: req.QuestID,
		Status:  []entity.SubmissionStatus{entity.SubmissionPending},
	}, req.Offset, req.Limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get pending submissions: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetPendingReviewListResponse{Submissions: []model.PendingReviewSubmission{}}
	for _, submission := range submissions {
		if !submission.NeedsReviewFlag {
			continue
		}

		resp.Submissions = append(resp.Submissions, model.PendingReviewSubmission{
			SubmissionID: submission.ID,
			TaskID:       submission.TaskID,
			UserID:       submission.UserID,
			SubmittedAt:  submission.CreatedAt.Format(time.RFC3339),
		})
	}

	return resp, nil
}

func (d *submissionDomain) notifyReviewRequested(
	ctx context.Context, submission *entity.TaskSubmission, reason string,
) {
	ev, err := notification.New(notification.ReviewRequestedEvent{
		SubmissionID: submission.ID,
		QuestID:      submission.QuestID,
		TaskID:       submission.TaskID,
		UserID:       submission.UserID,
		Reason:       reason,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create review event: %v", err)
		return
	}

	d.publish(ctx, submission.ID, ev)
}

func (d *submissionDomain) notifyCompleted(
	ctx context.Context, submission *entity.TaskSubmission, reward uint64, credentialUID string,
) {
	ev, err := notification.New(notification.SubmissionCompletedEvent{
		SubmissionID:  submission.ID,
		QuestID:       submission.QuestID,
		TaskID:        submission.TaskID,
		UserID:        submission.UserID,
		RewardAmount:  reward,
		CredentialUID: credentialUID,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create completed event: %v", err)
		return
	}

	d.publish(ctx, submission.ID, ev)
}

func (d *submissionDomain) publish(ctx context.Context, key string, ev *notification.EventRequest) {
	topic := xcontext.Configs(ctx).Kafka.NotificationTopic
	err := d.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(key), Msg: ev.Marshal()})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish %s event: %v", ev.Op, err)
	}
}
