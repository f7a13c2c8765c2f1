package dto

import "time"

// Engine operation results. Business refusals (hearts, invalid content,
// refill preconditions) travel in the Error field so clients can branch on
// them; transport/persistence failures surface as HTTP errors instead.

type SubmitChallengeRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
}

type UpsertChallengeProgressResponse struct {
	Success  bool   `json:"success"`
	Practice bool   `json:"practice"`
	Error    string `json:"error,omitempty"`
	Hearts   int    `json:"hearts"`
	Points   int    `json:"points"`
}

type ReduceHeartsResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Hearts  int    `json:"hearts"`
}

type RefillHeartsResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Hearts  int    `json:"hearts"`
	Points  int    `json:"points"`
}

type UserStateResponse struct {
	UserID           string  `json:"user_id"`
	Hearts           int     `json:"hearts"`
	Points           int     `json:"points"`
	ActiveCourseID   *string `json:"active_course_id,omitempty"`
	LastActiveUnitID *string `json:"last_active_unit_id,omitempty"`
	LastLessonID     *string `json:"last_lesson_id,omitempty"`
	HasSubscription  bool    `json:"has_subscription"`
}

type CourseProgressResponse struct {
	CourseID         string  `json:"course_id"`
	Progress         int     `json:"progress"`
	Completed        bool    `json:"completed"`
	LastActiveUnitID *string `json:"last_active_unit_id,omitempty"`
	LastLessonID     *string `json:"last_lesson_id,omitempty"`
}

type SetActiveCourseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// ResumeHint is the client's last-position snapshot. It is a disposable
// cache entry; on any conflict the server-computed ledger state wins.
type ResumeHint struct {
	LessonID    string    `json:"lesson_id"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	Percentage  int       `json:"percentage"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type LeaderboardEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Rank     int    `json:"rank"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
	Total   int                `json:"total"`
}
