package api

import (
	"github.com/starford/tickler/internal/models"
	"github.com/starford/tickler/internal/noteservice"
	"github.com/starford/tickler/internal/review"
)

// ScheduleReviewRequest is the request body for scheduling a review.
// Set Line (1-based) or LineText to schedule a single block.
type ScheduleReviewRequest struct {
	Path     string `json:"path" example:"projects/Note A.md" validate:"required"`
	Date     string `json:"date,omitempty" example:"in two weeks"`
	Line     int    `json:"line,omitempty" example:"3"`
	LineText string `json:"line_text,omitempty" example:"an idea worth revisiting"`
}

// ReviewResult is returned after a review was scheduled.
type ReviewResult = review.Result

// DailyNoteResponse is the daily note for one date.
type DailyNoteResponse struct {
	Target  models.ReviewTarget `json:"target" validate:"required"`
	Path    string              `json:"path" example:"daily/2024-05-02.md" validate:"required"`
	Content string              `json:"content" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}
