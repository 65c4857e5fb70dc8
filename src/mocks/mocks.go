package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/modelmux/modelmux/src/models"
)

// MockAdapter implements models.ProviderAdapter
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Call(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryResult), args.Error(1)
}

func (m *MockAdapter) CheckAvailability(ctx context.Context) models.Availability {
	args := m.Called(ctx)
	return args.Get(0).(models.Availability)
}

func (m *MockAdapter) Info() models.ModelInfo {
	args := m.Called()
	return args.Get(0).(models.ModelInfo)
}

// MockCache implements models.CacheStore
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (*models.QueryResult, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryResult), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, result *models.QueryResult) error {
	args := m.Called(ctx, key, result)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockToolBridge implements models.ToolBridge
type MockToolBridge struct {
	mock.Mock
}

func (m *MockToolBridge) ReadFile(path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *MockToolBridge) ListDirectory(path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *MockToolBridge) Grep(pattern string, opts models.GrepOptions) (string, error) {
	args := m.Called(pattern, opts)
	return args.String(0), args.Error(1)
}

func (m *MockToolBridge) Glob(pattern, basePath string) (string, error) {
	args := m.Called(pattern, basePath)
	return args.String(0), args.Error(1)
}
