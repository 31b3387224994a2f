package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type ReferenceStoreMock struct {
	mock.Mock
}

func NewReferenceStoreMock() *ReferenceStoreMock {
	return &ReferenceStoreMock{}
}

func (m *ReferenceStoreMock) Reserve(ctx context.Context, reference, orderID string) (string, bool, error) {
	args := m.Called(ctx, reference, orderID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *ReferenceStoreMock) Forget(ctx context.Context, reference string) error {
	args := m.Called(ctx, reference)
	return args.Error(0)
}
