package dto

// Catalog DTOs. The course tree is the catalog joined with the caller's
// ledger: every lesson carries its completed/locked flags so the client can
// render navigation without a second round trip.

type CourseResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageSrc string `json:"image_src"`
	Active   bool   `json:"active"` // the caller's active course
}

type CourseListResponse struct {
	Courses []CourseResponse `json:"courses"`
	Total   int              `json:"total"`
}

type ChallengeOptionResponse struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageSrc string `json:"image_src,omitempty"`
	AudioSrc string `json:"audio_src,omitempty"`
}

type ChallengeResponse struct {
	ID        string                    `json:"id"`
	Type      string                    `json:"type"`
	Question  string                    `json:"question"`
	Order     int                       `json:"order"`
	Completed bool                      `json:"completed"`
	Options   []ChallengeOptionResponse `json:"options"`
}

type LessonNodeResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	Completed bool   `json:"completed"`
	Locked    bool   `json:"locked"`
}

type UnitNodeResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Order       int                  `json:"order"`
	Locked      bool                 `json:"locked"`
	Lessons     []LessonNodeResponse `json:"lessons"`
}

type CourseTreeResponse struct {
	CourseID string             `json:"course_id"`
	Title    string             `json:"title"`
	Units    []UnitNodeResponse `json:"units"`
}

type LessonDetailResponse struct {
	ID         string              `json:"id"`
	UnitID     string              `json:"unit_id"`
	Title      string              `json:"title"`
	Order      int                 `json:"order"`
	Challenges []ChallengeResponse `json:"challenges"`
}

// Admin ingestion requests. Challenge shape is validated here, at authoring
// time, so the engine never has to grade an unplayable challenge.

type CreateCourseRequest struct {
	Title    string `json:"title" validate:"required"`
	ImageSrc string `json:"image_src"`
}

type CreateUnitRequest struct {
	CourseID    string `json:"course_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"gte=0"`
}

type CreateLessonRequest struct {
	UnitID    string  `json:"unit_id" validate:"required"`
	ChapterID *string `json:"chapter_id"`
	Title     string  `json:"title" validate:"required"`
	Order     int     `json:"order" validate:"gte=0"`
}

type CreateChallengeOptionRequest struct {
	Text     string `json:"text" validate:"required"`
	Correct  bool   `json:"correct"`
	ImageSrc string `json:"image_src"`
	AudioSrc string `json:"audio_src"`
}

type CreateChallengeRequest struct {
	LessonID string                         `json:"lesson_id" validate:"required"`
	Type     string                         `json:"type" validate:"required,oneof=SELECT ASSIST"`
	Question string                         `json:"question" validate:"required"`
	Order    int                            `json:"order" validate:"gte=0"`
	Options  []CreateChallengeOptionRequest `json:"options" validate:"dive"`
}

type ImportChallengesResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
