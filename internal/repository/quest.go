package repository

import (
	"context"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/pkg/xcontext"
)

type QuestRepository interface {
	Create(context.Context, *entity.Quest) error
	GetByID(context.Context, string) (*entity.Quest, error)
}

type questRepository struct{}

func NewQuestRepository() QuestRepository {
	return &questRepository{}
}

func (r *questRepository) Create(ctx context.Context, data *entity.Quest) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *questRepository) GetByID(ctx context.Context, id string) (*entity.Quest, error) {
	result := &entity.Quest{}
	if err := xcontext.DB(ctx).Take(result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return result, nil
}

type PrerequisiteRepository interface {
	Create(context.Context, *entity.QuestPrerequisite) error
	GetByQuestID(context.Context, string) ([]entity.QuestPrerequisite, error)
}

type prerequisiteRepository struct{}

func NewPrerequisiteRepository() PrerequisiteRepository {
	return &prerequisiteRepository{}
}

func (r *prerequisiteRepository) Create(ctx context.Context, data *entity.QuestPrerequisite) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *prerequisiteRepository) GetByQuestID(
	ctx context.Context, questID string,
) ([]entity.QuestPrerequisite, error) {
	result := []entity.QuestPrerequisite{}
	if err := xcontext.DB(ctx).Find(&result, "quest_id=?", questID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

type ProgressRepository interface {
	Create(context.Context, *entity.QuestProgress) error
	Get(ctx context.Context, userID, questID string) (*entity.QuestProgress, error)
}

type progressRepository struct{}

func NewProgressRepository() ProgressRepository {
	return &progressRepository{}
}

func (r *progressRepository) Create(ctx context.Context, data *entity.QuestProgress) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *progressRepository) Get(
	ctx context.Context, userID, questID string,
) (*entity.QuestProgress, error) {
	result := &entity.QuestProgress{}
	if err := xcontext.DB(ctx).
		Take(result, "user_id=? AND quest_id=?", userID, questID).Error; err != nil {
		return nil, err
	}

	return result, nil
}
