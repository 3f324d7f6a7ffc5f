package repository

import (
	"context"
	"fmt"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/pkg/xcontext"
)

type SubmissionFilter struct {
	QuestID string
	UserID  string
	Status  []entity.SubmissionStatus
}

type SubmissionRepository interface {
	Create(context.Context, *entity.TaskSubmission) error
	Update(context.Context, *entity.TaskSubmission) error
	GetByID(context.Context, string) (*entity.TaskSubmission, error)
	// GetActive returns the latest submission of (user, task) that is not
	// terminally failed.
	GetActive(ctx context.Context, userID, taskID string) (*entity.TaskSubmission, error)
	GetList(ctx context.Context, filter *SubmissionFilter, offset, limit int) ([]entity.TaskSubmission, error)
	UpdateReviewByID(ctx context.Context, id string, data *entity.TaskSubmission) error
}

type submissionRepository struct{}

func NewSubmissionRepository() SubmissionRepository {
	return &submissionRepository{}
}

func (r *submissionRepository) Create(ctx context.Context, data *entity.TaskSubmission) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *submissionRepository) Update(ctx context.Context, data *entity.TaskSubmission) error {
	return xcontext.DB(ctx).Save(data).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*entity.TaskSubmission, error) {
	result := &entity.TaskSubmission{}
	if err := xcontext.DB(ctx).Take(result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *submissionRepository) GetActive(
	ctx context.Context, userID, taskID string,
) (*entity.TaskSubmission, error) {
	result := entity.TaskSubmission{}
	statuses := []entity.SubmissionStatus{
		entity.SubmissionPending,
		entity.SubmissionCompleted,
		entity.SubmissionRetry,
	}
	if err := xcontext.DB(ctx).
		Where("user_id=? AND task_id=? AND status IN (?)", userID, taskID, statuses).
		Order("created_at desc").
		Last(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *submissionRepository) GetList(
	ctx context.Context, filter *SubmissionFilter, offset, limit int,
) ([]entity.TaskSubmission, error) {
	result := []entity.TaskSubmission{}
	tx := xcontext.DB(ctx).
		Offset(offset).
		Limit(limit).
		Order("created_at ASC")

	if filter.QuestID != "" {
		tx = tx.Where("quest_id = ?", filter.QuestID)
	}

	if filter.UserID != "" {
		tx = tx.Where("user_id = ?", filter.UserID)
	}

	if len(filter.Status) > 0 {
		tx = tx.Where("status IN (?)", filter.Status)
	}

	if err := tx.Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *submissionRepository) UpdateReviewByID(
	ctx context.Context, id string, data *entity.TaskSubmission,
) error {
	// Select forces zero-valued columns through; clearing the review flag
	// is part of settling.
	tx := xcontext.DB(ctx).
		Model(&entity.TaskSubmission{}).
		Where("id = ?", id).
		Select("status", "reward_claimed", "feedback",
			"needs_review_flag", "reviewer_id", "reviewed_at").
		Updates(data)
	if err := tx.Error; err != nil {
		return err
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf("update review not exec correctly")
	}

	return nil
}
