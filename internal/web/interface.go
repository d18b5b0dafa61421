package web

import (
	"context"

	"github.com/godilite/swachh-scan/internal/api"
)

type FacilityResolver interface {
	ResolveFacility(ctx context.Context, code string) (api.Facility, error)
}

type FeedbackSubmitter interface {
	SubmitFeedback(ctx context.Context, sub api.FeedbackSubmission) (api.Acknowledgement, error)
}

type StatsFetcher interface {
	FetchStats(ctx context.Context) (api.StatsSummary, error)
}
