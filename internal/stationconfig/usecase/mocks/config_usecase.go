// Package mocks provides mock implementations of the configuration store for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

// MockConfigUseCase is a mock implementation of ConfigUseCase.
type MockConfigUseCase struct {
	mock.Mock
}

// BeginEdit mocks the BeginEdit method.
func (m *MockConfigUseCase) BeginEdit(ctx context.Context) (*configDomain.Draft, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*configDomain.Draft), args.Error(1)
}

// SetField mocks the SetField method.
func (m *MockConfigUseCase) SetField(
	ctx context.Context,
	draft *configDomain.Draft,
	section, key, value string,
) error {
	args := m.Called(ctx, draft, section, key, value)
	return args.Error(0)
}

// Commit mocks the Commit method.
func (m *MockConfigUseCase) Commit(
	ctx context.Context,
	actorID string,
	draft *configDomain.Draft,
) (*configDomain.Document, error) {
	args := m.Called(ctx, actorID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*configDomain.Document), args.Error(1)
}

// Current mocks the Current method.
func (m *MockConfigUseCase) Current(ctx context.Context) *configDomain.Document {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*configDomain.Document)
}

// Get mocks the Get method.
func (m *MockConfigUseCase) Get(ctx context.Context, version uint64) (*configDomain.Document, error) {
	args := m.Called(ctx, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*configDomain.Document), args.Error(1)
}

// History mocks the History method.
func (m *MockConfigUseCase) History(ctx context.Context) ([]*configDomain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*configDomain.Document), args.Error(1)
}

// Apply mocks the Apply method.
func (m *MockConfigUseCase) Apply(ctx context.Context, actorID string, version uint64) error {
	args := m.Called(ctx, actorID, version)
	return args.Error(0)
}

// Replace mocks the Replace method.
func (m *MockConfigUseCase) Replace(
	ctx context.Context,
	actorID string,
	content configDomain.Content,
	reason string,
) (*configDomain.Document, error) {
	args := m.Called(ctx, actorID, content, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*configDomain.Document), args.Error(1)
}

// WithReadBarrier mocks the WithReadBarrier method by running fn on the
// document given to Return.
func (m *MockConfigUseCase) WithReadBarrier(
	ctx context.Context,
	fn func(doc *configDomain.Document) error,
) error {
	args := m.Called(ctx, fn)
	if doc, ok := args.Get(0).(*configDomain.Document); ok {
		return fn(doc)
	}
	return args.Error(1)
}

// Schema mocks the Schema method.
func (m *MockConfigUseCase) Schema() configDomain.Schema {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(configDomain.Schema)
}
