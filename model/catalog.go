// model/catalog.go
package model

import "time"

// Catalog hierarchy: Course -> Unit -> Chapter -> Lesson -> Challenge ->
// ChallengeOption. Owned by the editorial process; the progress engine only
// ever reads it.

type Course struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"not null"`
	ImageSrc  string    `json:"image_src"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Units []Unit `json:"units,omitempty" gorm:"foreignKey:CourseID"`
}

type Unit struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	CourseID    string    `json:"course_id" gorm:"not null;index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Order       int       `json:"order" gorm:"not null"` // position within the course
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:UnitID"`
}

// Chapter is a thin editorial grouping of lessons inside a unit. It carries
// no progress semantics of its own; locking and aggregation work on the
// unit's lesson order directly.
type Chapter struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UnitID    string    `json:"unit_id" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Order     int       `json:"order" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Lesson struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UnitID    string    `json:"unit_id" gorm:"not null;index"`
	ChapterID *string   `json:"chapter_id" gorm:"index"`
	Title     string    `json:"title" gorm:"not null"`
	Order     int       `json:"order" gorm:"not null"` // position within the unit
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Challenges []Challenge `json:"challenges,omitempty" gorm:"foreignKey:LessonID"`
}

// Challenge types form a closed set, validated at ingestion time. A SELECT
// challenge with zero options is malformed and must never reach a player.
type Challenge struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	LessonID  string    `json:"lesson_id" gorm:"not null;index"`
	Type      string    `json:"type" gorm:"not null"` // SELECT | ASSIST
	Question  string    `json:"question" gorm:"not null;type:text"`
	Order     int       `json:"order" gorm:"not null"` // position within the lesson
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Options []ChallengeOption `json:"options,omitempty" gorm:"foreignKey:ChallengeID"`
}

type ChallengeOption struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ChallengeID string    `json:"challenge_id" gorm:"not null;index"`
	Text        string    `json:"text" gorm:"not null"`
	Correct     bool      `json:"correct" gorm:"not null"`
	ImageSrc    string    `json:"image_src"`
	AudioSrc    string    `json:"audio_src"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserSubscription is the entitlement source for the hearts gate. A user is
// entitled while CurrentPeriodEnd is in the future.
type UserSubscription struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"uniqueIndex;not null"`
	CustomerID       string    `json:"customer_id"`
	SubscriptionID   string    `json:"subscription_id"`
	PriceID          string    `json:"price_id"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s *UserSubscription) IsActive(now time.Time) bool {
	return s != nil && s.CurrentPeriodEnd.After(now)
}
