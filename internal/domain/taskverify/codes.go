package taskverify

// Machine error keys carried in the submission response.
const (
	CodeTxHashRequired = "TX_HASH_REQUIRED"
	CodeEventNotFound  = "EVENT_NOT_FOUND"
	CodeTxAlreadyUsed  = "TX_ALREADY_USED"
	CodeTxFailed       = "TX_FAILED"
	CodeAmountTooLow   = "AMOUNT_TOO_LOW"
	CodeWrongStage     = "WRONG_STAGE"
	CodeWrongWallet    = "WRONG_WALLET"
	CodeRPCError       = "RPC_ERROR"

	CodeProofURLRequired = "PROOF_URL_REQUIRED"
	CodeInvalidProofURL  = "INVALID_PROOF_URL"

	CodeAIImageRequired = "AI_IMAGE_REQUIRED"
	CodeAIParseError    = "AI_PARSE_ERROR"
	CodeAIDefer         = "AI_DEFER"
	CodeAIRetry         = "AI_RETRY"
	CodeAIRequestFailed = "AI_REQUEST_FAILED"
	CodeAITimeout       = "AI_TIMEOUT"
	CodeAICancelled     = "AI_CANCELLED"

	CodeLinkRequired      = "LINK_REQUIRED"
	CodeAgreementRequired = "AGREEMENT_REQUIRED"

	CodePrerequisiteNotMet = "PREREQUISITE_NOT_MET"
	CodeKeyRequired        = "KEY_REQUIRED"
	CodeKeyCheckFailed     = "KEY_CHECK_FAILED"
	CodeIdentityRequired   = "IDENTITY_REQUIRED"

	CodeAlreadyCompleted = "ALREADY_COMPLETED"
	CodeAlreadyPending   = "ALREADY_PENDING"
)
