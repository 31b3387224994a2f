package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type ConverterMock struct {
	mock.Mock
}

func NewConverterMock() *ConverterMock {
	return &ConverterMock{}
}

func (m *ConverterMock) Rate(ctx context.Context, from, to string) (float64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(float64), args.Error(1)
}
