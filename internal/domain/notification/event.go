package notification

import (
	"encoding/json"
	"time"
)

// Event is anything the engine announces to the outside. The op string keys
// consumer-side dispatch.
type Event interface {
	Op() string
}

// EventRequest is the envelope published to the notification topic.
type EventRequest struct {
	Op       string          `json:"op"`
	IssuedAt time.Time       `json:"issued_at"`
	Data     json.RawMessage `json:"data"`
}

func New(ev Event) (*EventRequest, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	return &EventRequest{Op: ev.Op(), IssuedAt: time.Now(), Data: data}, nil
}

func (r *EventRequest) Marshal() []byte {
	b, _ := json.Marshal(r)
	return b
}

// ReviewRequestedEvent tells reviewers a submission is waiting on them. It is
// emitted once per entry into the review queue; a submission re-entering the
// queue after a rejected retry announces itself again.
type ReviewRequestedEvent struct {
	SubmissionID string `json:"submission_id"`
	QuestID      string `json:"quest_id"`
	TaskID       string `json:"task_id"`
	UserID       string `json:"user_id"`
	Reason       string `json:"reason,omitempty"`
}

func (e ReviewRequestedEvent) Op() string {
	return "review_requested"
}

// SubmissionCompletedEvent announces a finished task, whether or not a
// credential was issued for it.
type SubmissionCompletedEvent struct {
	SubmissionID  string `json:"submission_id"`
	QuestID       string `json:"quest_id"`
	TaskID        string `json:"task_id"`
	UserID        string `json:"user_id"`
	RewardAmount  uint64 `json:"reward_amount"`
	CredentialUID string `json:"credential_uid,omitempty"`
}

func (e SubmissionCompletedEvent) Op() string {
	return "submission_completed"
}
