package vision

import "context"

// IEndpoint is the multimodal inference gateway. It accepts an instruction
// and an image reference and returns the raw model text; interpreting that
// text is the caller's problem.
type IEndpoint interface {
	Adjudicate(ctx context.Context, imageURL, instruction string) (string, error)
}
