package testutil

import (
	"context"
	"time"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/repository"
)

var (
	User1 = entity.User{
		Base:              entity.Base{ID: "user1"},
		Name:              "user1",
		IdentityVerified:  true,
		IdentityExpiredAt: time.Now().Add(24 * time.Hour),
	}

	User2 = entity.User{
		Base: entity.Base{ID: "user2"},
		Name: "user2",
	}

	Wallet1 = entity.UserWallet{
		Base:    entity.Base{ID: "wallet1"},
		UserID:  User1.ID,
		Chain:   "testchain",
		Address: "0x1111111111111111111111111111111111111111",
	}

	Wallet2 = entity.UserWallet{
		Base:    entity.Base{ID: "wallet2"},
		UserID:  User2.ID,
		Chain:   "testchain",
		Address: "0x2222222222222222222222222222222222222222",
	}

	Quest1 = entity.Quest{
		Base:   entity.Base{ID: "quest1"},
		Title:  "Quest 1",
		Status: entity.QuestActive,
	}

	Quest2 = entity.Quest{
		Base:   entity.Base{ID: "quest2"},
		Title:  "Quest 2",
		Status: entity.QuestActive,
	}

	Task1 = entity.Task{
		Base:               entity.Base{ID: "task1"},
		QuestID:            Quest1.ID,
		Type:               entity.TaskChainPurchase,
		Title:              "Buy tokens",
		VerificationMethod: entity.MethodChainEvidence,
		RewardAmount:       100,
		ValidationData: entity.Map{
			"chain":           "testchain",
			"required_amount": "1000",
		},
	}

	Task2 = entity.Task{
		Base:               entity.Base{ID: "task2"},
		QuestID:            Quest1.ID,
		Type:               entity.TaskProofSubmission,
		Title:              "Share a screenshot",
		VerificationMethod: entity.MethodVision,
		RewardAmount:       50,
		RequiresInput:      true,
		ValidationData: entity.Map{
			"ai_prompt": "Check that the screenshot shows the shared post.",
		},
	}

	Task3 = entity.Task{
		Base:               entity.Base{ID: "task3"},
		QuestID:            Quest1.ID,
		Type:               entity.TaskSocialLink,
		Title:              "Post a link",
		VerificationMethod: entity.MethodLink,
		RewardAmount:       10,
	}

	Task4 = entity.Task{
		Base:               entity.Base{ID: "task4"},
		QuestID:            Quest1.ID,
		Type:               entity.TaskAgreementSignature,
		Title:              "Accept the terms",
		VerificationMethod: entity.MethodManual,
		RewardAmount:       5,
	}

	// Quest2 requires finishing Quest1 first.
	Prerequisite1 = entity.QuestPrerequisite{
		Base:                entity.Base{ID: "prerequisite1"},
		QuestID:             Quest2.ID,
		PrerequisiteQuestID: Quest1.ID,
	}

	Task5 = entity.Task{
		Base:               entity.Base{ID: "task5"},
		QuestID:            Quest2.ID,
		Type:               entity.TaskSocialLink,
		Title:              "Post another link",
		VerificationMethod: entity.MethodLink,
		RewardAmount:       10,
	}
)

func CreateFixtureDb(ctx context.Context) {
	InsertUsers(ctx)
	InsertQuests(ctx)
}

func InsertUsers(ctx context.Context) {
	userRepo := repository.NewUserRepository()
	walletRepo := repository.NewWalletRepository()

	for _, user := range []entity.User{User1, User2} {
		user := user
		if err := userRepo.Create(ctx, &user); err != nil {
			panic(err)
		}
	}

	for _, wallet := range []entity.UserWallet{Wallet1, Wallet2} {
		wallet := wallet
		if err := walletRepo.Create(ctx, &wallet); err != nil {
			panic(err)
		}
	}
}

func InsertQuests(ctx context.Context) {
	questRepo := repository.NewQuestRepository()
	taskRepo := repository.NewTaskRepository()
	prerequisiteRepo := repository.NewPrerequisiteRepository()

	for _, quest := range []entity.Quest{Quest1, Quest2} {
		quest := quest
		if err := questRepo.Create(ctx, &quest); err != nil {
			panic(err)
		}
	}

	for _, task := range []entity.Task{Task1, Task2, Task3, Task4, Task5} {
		task := task
		if err := taskRepo.Create(ctx, &task); err != nil {
			panic(err)
		}
	}

	prerequisite := Prerequisite1
	if err := prerequisiteRepo.Create(ctx, &prerequisite); err != nil {
		panic(err)
	}
}
