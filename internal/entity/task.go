package entity

import (
	"time"

	"github.com/questforge/backend/pkg/enum"
)

type TaskType string

var (
	// Chain-evidence tasks
	TaskChainPurchase     = enum.New(TaskType("chain_purchase"))
	TaskChainStageUpgrade = enum.New(TaskType("chain_stage_upgrade"))

	// Proof tasks
	TaskProofSubmission = enum.New(TaskType("proof_submission"))

	// Link and agreement tasks
	TaskSocialLink         = enum.New(TaskType("social_link"))
	TaskAgreementSignature = enum.New(TaskType("agreement_signature"))
)

func (t TaskType) IsChainEvidence() bool {
	return t == TaskChainPurchase || t == TaskChainStageUpgrade
}

type VerificationMethod string

var (
	MethodChainEvidence = enum.New(VerificationMethod("chain_evidence"))
	MethodVision        = enum.New(VerificationMethod("vision"))
	MethodManual        = enum.New(VerificationMethod("manual"))
	MethodLink          = enum.New(VerificationMethod("link"))
)

type QuestStatusType string

var (
	QuestDraft    = enum.New(QuestStatusType("draft"))
	QuestActive   = enum.New(QuestStatusType("active"))
	QuestArchived = enum.New(QuestStatusType("archived"))
)

type Quest struct {
	Base

	Title  string
	Status QuestStatusType
}

type Task struct {
	Base

	QuestID string
	Quest   Quest `gorm:"foreignKey:QuestID"`

	Type        TaskType
	Title       string
	Description string

	// VerificationMethod is what the author declared. Dispatch keys on Type;
	// the intrinsic requirement of a kind wins over a mislabeled method.
	VerificationMethod VerificationMethod

	RewardAmount   uint64
	NeedsReview    bool
	RequiresInput  bool
	ValidationData Map
}

type QuestPrerequisite struct {
	Base

	QuestID string
	Quest   Quest `gorm:"foreignKey:QuestID"`

	PrerequisiteQuestID string
	KeyAddress          string
	RequiresKey         bool
	RequiresIdentity    bool
}

// QuestProgress is written by the enrollment subsystem when a user finishes
// a quest. This engine only reads it.
type QuestProgress struct {
	Base

	UserID      string
	QuestID     string
	CompletedAt *time.Time
}
