// services/content.go
package services

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/lingoleap-app/lingo_api/dto"
	"github.com/lingoleap-app/lingo_api/model"
	"github.com/lingoleap-app/lingo_api/shared"
)

// ContentService owns the catalog read API and ingestion-time validation.
// The progress engine treats everything here as read-only reference data.
type ContentService struct {
	context.DefaultService

	sqlSvc *PostgresService
}

const CONTENT_SVC = "content_svc"

func (svc ContentService) Id() string {
	return CONTENT_SVC
}

func (svc *ContentService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ContentService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	return nil
}

// ==================== READ METHODS ====================

func (svc *ContentService) GetCourses(userID string) (*dto.CourseListResponse, error) {
	courses, err := svc.sqlSvc.GetCourses()
	if err != nil {
		return nil, err
	}

	var activeCourseID string
	if state, err := svc.sqlSvc.GetUserState(userID); err == nil && state.ActiveCourseID != nil {
		activeCourseID = *state.ActiveCourseID
	}

	resp := &dto.CourseListResponse{Total: len(courses)}
	for _, course := range courses {
		resp.Courses = append(resp.Courses, dto.CourseResponse{
			ID:       course.ID,
			Title:    course.Title,
			ImageSrc: course.ImageSrc,
			Active:   course.ID == activeCourseID,
		})
	}
	return resp, nil
}

// GetCourseTree renders the course as the navigable tree the client shows:
// catalog order joined with the caller's ledger, every lesson flagged
// completed/locked and every unit flagged locked.
func (svc *ContentService) GetCourseTree(userID, courseID string) (*dto.CourseTreeResponse, error) {
	course, err := svc.sqlSvc.GetCourseSubtree(courseID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "Course not found")
	}

	done, err := svc.sqlSvc.GetCompletedChallengeIDs(userID, ChallengeIDsOf(course.Units))
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load completion ledger")
	}

	resp := &dto.CourseTreeResponse{
		CourseID: course.ID,
		Title:    course.Title,
	}

	for ui := range course.Units {
		unit := &course.Units[ui]
		unitNode := dto.UnitNodeResponse{
			ID:          unit.ID,
			Title:       unit.Title,
			Description: unit.Description,
			Order:       unit.Order,
			Locked:      !IsUnitUnlocked(course.Units, done, ui),
		}

		for li := range unit.Lessons {
			lesson := &unit.Lessons[li]
			unitNode.Lessons = append(unitNode.Lessons, dto.LessonNodeResponse{
				ID:        lesson.ID,
				Title:     lesson.Title,
				Order:     lesson.Order,
				Completed: IsLessonComplete(lesson, done),
				Locked:    !IsLessonUnlocked(course.Units, done, ui, li),
			})
		}

		resp.Units = append(resp.Units, unitNode)
	}

	return resp, nil
}

func (svc *ContentService) GetLesson(userID, lessonID string) (*dto.LessonDetailResponse, error) {
	lesson, err := svc.sqlSvc.GetLessonWithChallenges(lessonID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "Lesson not found")
	}

	ids := make([]string, len(lesson.Challenges))
	for i, ch := range lesson.Challenges {
		ids[i] = ch.ID
	}
	done, err := svc.sqlSvc.GetCompletedChallengeIDs(userID, ids)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load completion ledger")
	}

	resp := &dto.LessonDetailResponse{
		ID:     lesson.ID,
		UnitID: lesson.UnitID,
		Title:  lesson.Title,
		Order:  lesson.Order,
	}

	for _, ch := range lesson.Challenges {
		chResp := dto.ChallengeResponse{
			ID:        ch.ID,
			Type:      ch.Type,
			Question:  ch.Question,
			Order:     ch.Order,
			Completed: done[ch.ID],
		}
		for _, opt := range ch.Options {
			// Correctness is never sent to the client.
			chResp.Options = append(chResp.Options, dto.ChallengeOptionResponse{
				ID:       opt.ID,
				Text:     opt.Text,
				ImageSrc: opt.ImageSrc,
				AudioSrc: opt.AudioSrc,
			})
		}
		resp.Challenges = append(resp.Challenges, chResp)
	}

	return resp, nil
}

// ==================== INGESTION METHODS ====================

func (svc *ContentService) CreateCourse(req dto.CreateCourseRequest) (*model.Course, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid course")
	}

	return svc.sqlSvc.CreateCourse(&model.Course{
		Title:    req.Title,
		ImageSrc: req.ImageSrc,
		IsActive: true,
	})
}

func (svc *ContentService) CreateUnit(req dto.CreateUnitRequest) (*model.Unit, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid unit")
	}
	if _, err := svc.sqlSvc.GetCourse(req.CourseID); err != nil {
		return nil, shared.NewNotFoundError(err, "Course not found")
	}

	return svc.sqlSvc.CreateUnit(&model.Unit{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
	})
}

func (svc *ContentService) CreateLesson(req dto.CreateLessonRequest) (*model.Lesson, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid lesson")
	}
	if _, err := svc.sqlSvc.GetUnit(req.UnitID); err != nil {
		return nil, shared.NewNotFoundError(err, "Unit not found")
	}

	return svc.sqlSvc.CreateLesson(&model.Lesson{
		UnitID:    req.UnitID,
		ChapterID: req.ChapterID,
		Title:     req.Title,
		Order:     req.Order,
	})
}

func (svc *ContentService) CreateChallenge(req dto.CreateChallengeRequest) (*model.Challenge, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid challenge")
	}
	if err := ValidateChallengeShape(req.Type, req.Options); err != nil {
		return nil, err
	}
	if _, err := svc.sqlSvc.GetLesson(req.LessonID); err != nil {
		return nil, shared.NewNotFoundError(err, "Lesson not found")
	}

	challenge := &model.Challenge{
		LessonID: req.LessonID,
		Type:     req.Type,
		Question: req.Question,
		Order:    req.Order,
	}
	for _, opt := range req.Options {
		challenge.Options = append(challenge.Options, model.ChallengeOption{
			Text:     opt.Text,
			Correct:  opt.Correct,
			ImageSrc: opt.ImageSrc,
			AudioSrc: opt.AudioSrc,
		})
	}

	return svc.sqlSvc.CreateChallenge(challenge)
}

// ValidateChallengeShape enforces the structural rules at authoring time so
// the engine never sees an unplayable challenge: the type must come from the
// closed set, every challenge needs at least one option with at least one
// marked correct, and a SELECT challenge carries exactly one correct option.
func ValidateChallengeShape(challengeType string, options []dto.CreateChallengeOptionRequest) error {
	switch challengeType {
	case shared.ChallengeTypeSelect, shared.ChallengeTypeAssist:
	default:
		return shared.NewInvalidContentError(
			fmt.Errorf("unknown challenge type %q", challengeType),
			"Challenge type must be SELECT or ASSIST")
	}

	if len(options) == 0 {
		return shared.NewInvalidContentError(
			fmt.Errorf("%s challenge without options", challengeType),
			"Challenge requires at least one option")
	}

	correct := 0
	for _, opt := range options {
		if opt.Correct {
			correct++
		}
	}

	if correct == 0 {
		return shared.NewInvalidContentError(
			fmt.Errorf("no correct option"),
			"Challenge requires a correct option")
	}
	if challengeType == shared.ChallengeTypeSelect && correct != 1 {
		return shared.NewInvalidContentError(
			fmt.Errorf("%d correct options", correct),
			"SELECT challenge requires exactly one correct option")
	}

	return nil
}

// ==================== BULK IMPORT ====================

// ImportChallengesXLSX ingests challenges from a spreadsheet. Expected
// columns: lesson id, type, question, order, options. Options are
// semicolon-separated, correct ones prefixed with '*'. Each row goes through
// the same shape validation as the JSON API.
func (svc *ContentService) ImportChallengesXLSX(data []byte) (*dto.ImportChallengesResponse, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid spreadsheet")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, shared.NewBadRequestError(err, "Failed to read spreadsheet")
	}

	resp := &dto.ImportChallengesResponse{}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 5 {
			resp.Skipped++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: expected 5 columns", i+1))
			continue
		}

		order, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: bad order %q", i+1, row[3]))
			continue
		}

		req := dto.CreateChallengeRequest{
			LessonID: strings.TrimSpace(row[0]),
			Type:     strings.ToUpper(strings.TrimSpace(row[1])),
			Question: strings.TrimSpace(row[2]),
			Order:    order,
			Options:  parseOptionCell(row[4]),
		}

		if _, err := svc.CreateChallenge(req); err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		resp.Imported++
	}

	log.WithFields(log.Fields{
		"imported": resp.Imported,
		"skipped":  resp.Skipped,
	}).Info("Challenge import finished")

	return resp, nil
}

func parseOptionCell(cell string) []dto.CreateChallengeOptionRequest {
	var options []dto.CreateChallengeOptionRequest
	for _, part := range strings.Split(cell, ";") {
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		correct := strings.HasPrefix(text, "*")
		options = append(options, dto.CreateChallengeOptionRequest{
			Text:    strings.TrimPrefix(text, "*"),
			Correct: correct,
		})
	}
	return options
}
