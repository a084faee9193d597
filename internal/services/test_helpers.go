package services

import (
	"github.com/stretchr/testify/mock"

	"fincast/internal/dataprocessing"
)

// MockObservationLoader is a mock for the ObservationLoader interface
type MockObservationLoader struct {
	mock.Mock
}

func (m *MockObservationLoader) Load(path, sheet string) (*dataprocessing.LoadResult, error) {
	args := m.Called(path, sheet)
	if res := args.Get(0); res != nil {
		return res.(*dataprocessing.LoadResult), args.Error(1)
	}
	return nil, args.Error(1)
}
