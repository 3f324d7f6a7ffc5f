package taskverify

import (
	"context"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/pkg/blockchain/types"
)

type Decision struct {
	name string
}

func (d Decision) Name() string {
	return d.name
}

func (d Decision) Is(another Decision) bool {
	return d.name == another.name
}

var (
	// Approved means the evidence satisfies the task; the submission can
	// complete.
	Approved = Decision{name: "approved"}

	// Rejected means the evidence was checked and found wanting. The attempt
	// is recorded as failed.
	Rejected = Decision{name: "rejected"}

	// Retry means the user should fix something and try again.
	Retry = Decision{name: "retry"}

	// NeedsReview routes the submission to a human reviewer.
	NeedsReview = Decision{name: "needs_review"}

	// Invalid means the request itself was malformed. Nothing is persisted.
	Invalid = Decision{name: "invalid"}

	// Unavailable means an external dependency failed. Nothing is persisted;
	// the client may resubmit.
	Unavailable = Decision{name: "unavailable"}
)

// Result is the normalized outcome every strategy produces.
type Result struct {
	Decision Decision
	Code     string
	Reason   string

	// Metadata is persisted into the submission's verification data.
	// Strategies that derive their own evidence put only derived values
	// here.
	Metadata entity.Map
}

// Verifier decides whether a submitted payload satisfies one task. A
// verifier is a pure function of the payload, the task config, and its
// injected clients; it never writes to persistence.
type Verifier interface {
	// Always return errorx in this method.
	Verify(ctx context.Context, payload model.VerificationPayload) (Result, error)
}

// EvidenceReader decodes on-chain event logs into structured facts.
type EvidenceReader interface {
	Read(ctx context.Context, chain, txHash, eventName string) (*types.Evidence, error)
}
