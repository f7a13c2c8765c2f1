package handlers

import (
	"github.com/lingoleap-app/lingo_api/dto"
	"github.com/lingoleap-app/lingo_api/model"
)

type AuthServiceInterface interface {
	Register(req dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(req dto.LoginRequest) (*dto.LoginResponse, error)
	GetUserInfo(userID string) (*dto.UserInfo, error)
}

type ProgressServiceInterface interface {
	UpsertChallengeProgress(userID, challengeID string) (*dto.UpsertChallengeProgressResponse, error)
	ReduceHearts(userID, challengeID string) (*dto.ReduceHeartsResponse, error)
	RefillHeartsWithPoints(userID string) (*dto.RefillHeartsResponse, error)
	GetUserState(userID string) (*dto.UserStateResponse, error)
	SetActiveCourse(userID, courseID string) (*dto.UserStateResponse, error)
	GetCourseProgress(userID, courseID string) (*dto.CourseProgressResponse, error)
	RecomputeCourseProgress(userID, courseID string) (*dto.CourseProgressResponse, error)
	SaveResumeHint(userID string, hint dto.ResumeHint) error
	GetResumeHint(userID, lessonID string) (*dto.ResumeHint, error)
	GetLeaderboard() (*dto.LeaderboardResponse, error)
}

type ContentServiceInterface interface {
	GetCourses(userID string) (*dto.CourseListResponse, error)
	GetCourseTree(userID, courseID string) (*dto.CourseTreeResponse, error)
	GetLesson(userID, lessonID string) (*dto.LessonDetailResponse, error)
	CreateCourse(req dto.CreateCourseRequest) (*model.Course, error)
	CreateUnit(req dto.CreateUnitRequest) (*model.Unit, error)
	CreateLesson(req dto.CreateLessonRequest) (*model.Lesson, error)
	CreateChallenge(req dto.CreateChallengeRequest) (*model.Challenge, error)
	ImportChallengesXLSX(data []byte) (*dto.ImportChallengesResponse, error)
}
