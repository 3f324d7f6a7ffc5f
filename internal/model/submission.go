package model

// VerificationPayload is the method-specific data a user submits with a
// completion attempt.
type VerificationPayload struct {
	Chain    string `json:"chain,omitempty"`
	TxHash   string `json:"tx_hash,omitempty"`
	ProofURL string `json:"proof_url,omitempty"`
	Link     string `json:"link,omitempty"`
	Accepted bool   `json:"accepted,omitempty"`
}

type SubmitTaskRequest struct {
	QuestID string              `json:"quest_id"`
	TaskID  string              `json:"task_id"`
	Payload VerificationPayload `json:"payload"`
}

type SubmitTaskResponse struct {
	Success        bool   `json:"success"`
	Code           string `json:"code,omitempty"`
	SubmissionID   string `json:"submission_id,omitempty"`
	Status         string `json:"status,omitempty"`
	RewardEligible bool   `json:"reward_eligible"`
	Feedback       string `json:"feedback,omitempty"`
}

type ReviewSubmissionRequest struct {
	SubmissionID string `json:"submission_id"`
	Action       string `json:"action"`
	Comment      string `json:"comment"`
}

type ReviewSubmissionResponse struct {
	Status string `json:"status"`
}

type GetSubmissionRequest struct {
	SubmissionID string `json:"submission_id"`
}

type GetSubmissionResponse struct {
	SubmissionID   string `json:"submission_id"`
	TaskID         string `json:"task_id"`
	QuestID        string `json:"quest_id"`
	Status         string `json:"status"`
	Feedback       string `json:"feedback,omitempty"`
	RewardEligible bool   `json:"reward_eligible"`
	AttestationUID string `json:"attestation_uid,omitempty"`
}

type GetPendingReviewListRequest struct {
	QuestID string `json:"quest_id"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
}

type PendingReviewSubmission struct {
	SubmissionID string `json:"submission_id"`
	TaskID       string `json:"task_id"`
	UserID       string `json:"user_id"`
	SubmittedAt  string `json:"submitted_at"`
}

type GetPendingReviewListResponse struct {
	Submissions []PendingReviewSubmission `json:"submissions"`
}
