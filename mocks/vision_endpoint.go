package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type VisionEndpoint struct {
	mock.Mock
}

func (e *VisionEndpoint) Adjudicate(arg1 context.Context, arg2, arg3 string) (string, error) {
	args := e.Called(arg1, arg2, arg3)

	return args.String(0), args.Error(1)
}
