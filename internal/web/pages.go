package web

import (
	"net/url"
	"time"

	"github.com/godilite/swachh-scan/internal/api"
)

const (
	defaultRating = 5
	minRating     = 1
	maxRating     = 5
)

type HomePage struct{}

type FacilityErrorPage struct {
	Message string
}

type RatingControl struct {
	Value    int
	Selected bool
}

// FeedbackPage is everything the form shows. Entered values survive
// re-renders after a rating pick or a failed submission.
type FeedbackPage struct {
	Code             string
	Action           string
	FacilityName     string
	FacilityAddress  string
	Rating           int
	Controls         []RatingControl
	Comment          string
	PhotoURL         string
	Error            string
	GeoTimeoutMillis int64
}

func ratingControls(selected int) []RatingControl {
	controls := make([]RatingControl, 0, maxRating-minRating+1)
	for n := minRating; n <= maxRating; n++ {
		controls = append(controls, RatingControl{Value: n, Selected: n <= selected})
	}
	return controls
}

func newFeedbackPage(code, name, address string, rating int, geoTimeout time.Duration) FeedbackPage {
	return FeedbackPage{
		Code:             code,
		Action:           "/f/" + url.PathEscape(code),
		FacilityName:     name,
		FacilityAddress:  address,
		Rating:           rating,
		Controls:         ratingControls(rating),
		GeoTimeoutMillis: geoTimeout.Milliseconds(),
	}
}

type StatTile struct {
	Key   string
	Title string
	Value int64
}

type LeaderRow struct {
	Rank          int
	Name          string
	ResolvedCount int64
}

type DashboardPage struct {
	Error string
	Tiles []StatTile
	Rows  []LeaderRow
}

func newDashboardPage(stats api.StatsSummary) DashboardPage {
	page := DashboardPage{
		Tiles: []StatTile{
			{Key: "total", Title: "Total", Value: stats.Counts.Total},
			{Key: "open", Title: "Open", Value: stats.Counts.Open},
			{Key: "in_progress", Title: "In Progress", Value: stats.Counts.InProgress},
			{Key: "resolved", Title: "Resolved", Value: stats.Counts.Resolved},
		},
		Rows: make([]LeaderRow, 0, len(stats.Leaderboard)),
	}
	for i, e := range stats.Leaderboard {
		page.Rows = append(page.Rows, LeaderRow{
			Rank:          i + 1,
			Name:          e.DisplayName(),
			ResolvedCount: e.ResolvedCount,
		})
	}
	return page
}
