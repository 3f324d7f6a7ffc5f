package mocks

import (
	"context"

	"github.com/questforge/backend/pkg/blockchain/types"
	"github.com/stretchr/testify/mock"
)

type EvidenceReader struct {
	mock.Mock
}

func (r *EvidenceReader) Read(
	arg1 context.Context, arg2, arg3, arg4 string,
) (*types.Evidence, error) {
	args := r.Called(arg1, arg2, arg3, arg4)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Evidence), args.Error(1)
}
