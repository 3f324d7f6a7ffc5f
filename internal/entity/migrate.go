package entity

import (
	"context"

	"github.com/questforge/backend/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&User{},
		&UserWallet{},
		&Quest{},
		&Task{},
		&QuestPrerequisite{},
		&QuestProgress{},
		&TaskSubmission{},
		&UsedTransaction{},
	)
}
