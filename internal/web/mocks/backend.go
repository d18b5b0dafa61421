package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/godilite/swachh-scan/internal/api"
)

// MockFacilityResolver is a mock implementation of the FacilityResolver
// interface. It uses function-based mocking for flexibility.
type MockFacilityResolver struct {
	ResolveFacilityFunc func(ctx context.Context, code string) (api.Facility, error)

	mu    sync.Mutex
	Calls []string
}

// ResolveFacility implements the FacilityResolver interface
func (m *MockFacilityResolver) ResolveFacility(ctx context.Context, code string) (api.Facility, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, code)
	m.mu.Unlock()
	if m.ResolveFacilityFunc != nil {
		return m.ResolveFacilityFunc(ctx, code)
	}
	return api.Facility{}, errors.New("ResolveFacilityFunc not implemented")
}

// MockFeedbackSubmitter records every submission it receives.
type MockFeedbackSubmitter struct {
	SubmitFeedbackFunc func(ctx context.Context, sub api.FeedbackSubmission) (api.Acknowledgement, error)

	mu          sync.Mutex
	Submissions []api.FeedbackSubmission
}

// SubmitFeedback implements the FeedbackSubmitter interface
func (m *MockFeedbackSubmitter) SubmitFeedback(ctx context.Context, sub api.FeedbackSubmission) (api.Acknowledgement, error) {
	m.mu.Lock()
	m.Submissions = append(m.Submissions, sub)
	m.mu.Unlock()
	if m.SubmitFeedbackFunc != nil {
		return m.SubmitFeedbackFunc(ctx, sub)
	}
	return api.Acknowledgement{"status": "ok"}, nil
}

// MockStatsFetcher is a mock implementation of the StatsFetcher interface.
type MockStatsFetcher struct {
	FetchStatsFunc func(ctx context.Context) (api.StatsSummary, error)
}

// FetchStats implements the StatsFetcher interface
func (m *MockStatsFetcher) FetchStats(ctx context.Context) (api.StatsSummary, error) {
	if m.FetchStatsFunc != nil {
		return m.FetchStatsFunc(ctx)
	}
	return api.StatsSummary{}, errors.New("FetchStatsFunc not implemented")
}
