package repository

import (
	"context"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/pkg/xcontext"
)

type TaskRepository interface {
	Create(context.Context, *entity.Task) error
	GetByID(context.Context, string) (*entity.Task, error)
	GetByQuestID(context.Context, string) ([]entity.Task, error)
}

type taskRepository struct{}

func NewTaskRepository() TaskRepository {
	return &taskRepository{}
}

func (r *taskRepository) Create(ctx context.Context, data *entity.Task) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	result := &entity.Task{}
	if err := xcontext.DB(ctx).Take(result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *taskRepository) GetByQuestID(ctx context.Context, questID string) ([]entity.Task, error) {
	result := []entity.Task{}
	if err := xcontext.DB(ctx).Find(&result, "quest_id=?", questID).Error; err != nil {
		return nil, err
	}

	return result, nil
}
