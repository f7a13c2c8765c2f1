package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/lingoleap-app/lingo_api/dto"
	"github.com/lingoleap-app/lingo_api/shared"
)

type ContentHandler struct {
	contentSvc ContentServiceInterface
}

func NewContentHandler(contentSvc ContentServiceInterface) *ContentHandler {
	return &ContentHandler{contentSvc: contentSvc}
}

// @Summary List courses
// @Tags content
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.CourseListResponse}
// @Router /api/v1/courses [get]
func (h *ContentHandler) GetCourses(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.contentSvc.GetCourses(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Course tree
// @Description Units and lessons with completion and lock flags for the caller
// @Tags content
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Success 200 {object} shared.Response{data=dto.CourseTreeResponse}
// @Router /api/v1/courses/{courseId}/tree [get]
func (h *ContentHandler) GetCourseTree(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	courseID := c.Params("courseId")

	resp, err := h.contentSvc.GetCourseTree(userID, courseID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Lesson detail
// @Description Challenges and options for a lesson, without answer keys
// @Tags content
// @Produce json
// @Security Bearer
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} shared.Response{data=dto.LessonDetailResponse}
// @Router /api/v1/lessons/{lessonId} [get]
func (h *ContentHandler) GetLesson(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	lessonID := c.Params("lessonId")

	resp, err := h.contentSvc.GetLesson(userID, lessonID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Create course
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.CreateCourseRequest true "Course"
// @Success 201 {object} shared.Response{data=model.Course}
// @Router /api/v1/admin/courses [post]
func (h *ContentHandler) CreateCourse(c *fiber.Ctx) error {
	var req dto.CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	course, err := h.contentSvc.CreateCourse(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", course)
}

// @Summary Create unit
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.CreateUnitRequest true "Unit"
// @Success 201 {object} shared.Response{data=model.Unit}
// @Router /api/v1/admin/units [post]
func (h *ContentHandler) CreateUnit(c *fiber.Ctx) error {
	var req dto.CreateUnitRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	unit, err := h.contentSvc.CreateUnit(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", unit)
}

// @Summary Create lesson
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.CreateLessonRequest true "Lesson"
// @Success 201 {object} shared.Response{data=model.Lesson}
// @Router /api/v1/admin/lessons [post]
func (h *ContentHandler) CreateLesson(c *fiber.Ctx) error {
	var req dto.CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	lesson, err := h.contentSvc.CreateLesson(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", lesson)
}

// @Summary Create challenge
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.CreateChallengeRequest true "Challenge"
// @Success 201 {object} shared.Response{data=model.Challenge}
// @Router /api/v1/admin/challenges [post]
func (h *ContentHandler) CreateChallenge(c *fiber.Ctx) error {
	var req dto.CreateChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	challenge, err := h.contentSvc.CreateChallenge(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", challenge)
}

// @Summary Import challenges
// @Description Bulk-load challenges from an XLSX upload
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param file formData file true "XLSX file"
// @Success 200 {object} shared.Response{data=dto.ImportChallengesResponse}
// @Router /api/v1/admin/challenges/import [post]
func (h *ContentHandler) ImportChallenges(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return shared.NewBadRequestError(err, "Missing file")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return shared.NewBadRequestError(err, "Unreadable file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return shared.NewBadRequestError(err, "Unreadable file")
	}

	resp, err := h.contentSvc.ImportChallengesXLSX(data)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}
