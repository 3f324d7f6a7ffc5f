package entity

import (
	"time"

	"github.com/questforge/backend/pkg/enum"
)

type SubmissionStatus string

var (
	SubmissionPending   = enum.New(SubmissionStatus("pending"))
	SubmissionCompleted = enum.New(SubmissionStatus("completed"))
	SubmissionFailed    = enum.New(SubmissionStatus("failed"))
	SubmissionRetry     = enum.New(SubmissionStatus("retry"))
)

type TaskSubmission struct {
	Base

	TaskID string
	Task   Task `gorm:"foreignKey:TaskID"`

	UserID string
	User   User `gorm:"foreignKey:UserID"`

	QuestID string

	Status SubmissionStatus

	// VerificationData holds strategy-specific facts. Strategies deriving
	// their own evidence persist the derived values and a nil raw_input;
	// client-typed identifiers are never stored as truth.
	VerificationData Map

	RewardClaimed bool
	Feedback      string

	NeedsReviewFlag bool
	ReviewerID      string
	ReviewedAt      time.Time

	AttestationUID string
	AttestationTx  string
}

// UsedTransaction is a claim on one piece of on-chain evidence. The
// composite unique index is what makes the replay guard atomic: the second
// insert of the same (chain, tx_hash) loses.
type UsedTransaction struct {
	Base

	Chain  string `gorm:"uniqueIndex:idx_used_transactions_chain_tx"`
	TxHash string `gorm:"uniqueIndex:idx_used_transactions_chain_tx"`

	SubmissionID string
	UserID       string
}
