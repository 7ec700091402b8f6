package handlers

import (
	"github.com/adyen/marketprobe/internal/models"
	"github.com/adyen/marketprobe/internal/services"
)

// MockRunService is a mock implementation of services.RunService for testing
type MockRunService struct {
	StartRunFunc  func(*models.Run) error
	FinishRunFunc func(*models.Run) error
	GetRunFunc    func(string) (*models.Run, error)
	ListRunsFunc  func(models.RunFilter) ([]*models.Run, error)
	SummaryFunc   func() (services.Summary, error)
}

func (m *MockRunService) StartRun(run *models.Run) error {
	if m.StartRunFunc != nil {
		return m.StartRunFunc(run)
	}
	return nil
}

func (m *MockRunService) FinishRun(run *models.Run) error {
	if m.FinishRunFunc != nil {
		return m.FinishRunFunc(run)
	}
	return nil
}

func (m *MockRunService) GetRun(id string) (*models.Run, error) {
	if m.GetRunFunc != nil {
		return m.GetRunFunc(id)
	}
	return &models.Run{ID: id}, nil
}

func (m *MockRunService) ListRuns(filter models.RunFilter) ([]*models.Run, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(filter)
	}
	return nil, nil
}

func (m *MockRunService) Summary() (services.Summary, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc()
	}
	return services.Summary{}, nil
}
