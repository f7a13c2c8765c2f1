// model/progress.go
package model

import "time"

// UserState is the single per-learner gamification record: hearts, points and
// last known position. Created lazily on first read, never deleted.
type UserState struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"uniqueIndex;not null"`
	Hearts           int       `json:"hearts" gorm:"default:5"`
	Points           int       `json:"points" gorm:"default:0"`
	ActiveCourseID   *string   `json:"active_course_id"`
	LastActiveUnitID *string   `json:"last_active_unit_id"`
	LastLessonID     *string   `json:"last_lesson_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ChallengeProgress is one ledger fact: user U completed challenge C. The
// composite unique index is what keeps concurrent first submissions from
// both counting as a first completion.
type ChallengeProgress struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"not null;uniqueIndex:idx_user_challenge"`
	ChallengeID string    `json:"challenge_id" gorm:"not null;uniqueIndex:idx_user_challenge"`
	Completed   bool      `json:"completed" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CourseProgress caches the per-course completion summary. It is always
// recomputed wholesale from the ledger, never patched incrementally.
type CourseProgress struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"not null;uniqueIndex:idx_user_course"`
	CourseID         string    `json:"course_id" gorm:"not null;uniqueIndex:idx_user_course"`
	Progress         int       `json:"progress" gorm:"default:0"` // percentage [0,100]
	Completed        bool      `json:"completed" gorm:"default:false"`
	LastActiveUnitID *string   `json:"last_active_unit_id"`
	LastLessonID     *string   `json:"last_lesson_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
