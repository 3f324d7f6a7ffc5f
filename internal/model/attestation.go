package model

// DelegatedAttestation is the user-signed payload a relayer submits on the
// user's behalf. It never touches persistence.
type DelegatedAttestation struct {
	Signer    string `json:"signer"`
	SchemaUID string `json:"schema_uid"`
	Data      string `json:"data"`
	Deadline  uint64 `json:"deadline"`
	Signature string `json:"signature"`
}

type ClaimAttestationRequest struct {
	SubmissionID string                `json:"submission_id"`
	Attestation  *DelegatedAttestation `json:"attestation,omitempty"`
}

type ClaimAttestationResponse struct {
	Success       bool   `json:"success"`
	CredentialUID string `json:"credential_uid,omitempty"`
	ScanURL       string `json:"scan_url,omitempty"`
}
