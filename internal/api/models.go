package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/godilite/swachh-scan/internal/geo"
)

const placeholderFacilityName = "Public Facility"

// Facility is the backend's record for a QR-coded location.
type Facility struct {
	Code    string `json:"code,omitempty"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// DisplayName falls back to a placeholder when the backend has no name.
func (f Facility) DisplayName() string {
	if f.Name == "" {
		return placeholderFacilityName
	}
	return f.Name
}

// FeedbackSubmission is the body of POST /api/feedback. Nullable fields
// encode as JSON null.
type FeedbackSubmission struct {
	FacilityCode string   `json:"facility_code"`
	Rating       int      `json:"rating"`
	Comment      string   `json:"comment"`
	PhotoURL     *string  `json:"photo_url"`
	UserLat      *float64 `json:"user_lat"`
	UserLng      *float64 `json:"user_lng"`
}

// NewFeedbackSubmission builds a submission, mapping an empty photo URL and
// an unavailable position to nulls.
func NewFeedbackSubmission(code string, rating int, comment, photoURL string, pos geo.Result) FeedbackSubmission {
	sub := FeedbackSubmission{
		FacilityCode: code,
		Rating:       rating,
		Comment:      comment,
	}
	if photoURL != "" {
		sub.PhotoURL = &photoURL
	}
	sub.UserLat, sub.UserLng = pos.Pointers()
	return sub
}

// Acknowledgement is whatever object the backend returns for a submission.
type Acknowledgement map[string]any

type Counts struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
}

// StaffID accepts both string and numeric identifiers from the backend.
type StaffID string

func (id *StaffID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StaffID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("staff_id: %w", err)
	}
	*id = StaffID(n.String())
	return nil
}

type LeaderboardEntry struct {
	StaffID       StaffID `json:"staff_id"`
	StaffName     string  `json:"staff_name,omitempty"`
	ResolvedCount int64   `json:"resolved_count"`
}

// DisplayName is the staff name when present, otherwise the staff id.
func (e LeaderboardEntry) DisplayName() string {
	if e.StaffName != "" {
		return e.StaffName
	}
	return string(e.StaffID)
}

// StatsSummary is the body of GET /api/stats. Leaderboard order is the
// server's ranking and is kept as-is.
type StatsSummary struct {
	Counts      Counts             `json:"counts"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}
