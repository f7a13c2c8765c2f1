package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lingoleap-app/lingo_api/dto"
	"github.com/lingoleap-app/lingo_api/shared"
)

type ProgressHandler struct {
	progressSvc ProgressServiceInterface
}

func NewProgressHandler(progressSvc ProgressServiceInterface) *ProgressHandler {
	return &ProgressHandler{progressSvc: progressSvc}
}

// @Summary Submit challenge completion
// @Description Record a correct answer for a challenge
// @Tags progress
// @Produce json
// @Security Bearer
// @Param challengeId path string true "Challenge ID"
// @Success 200 {object} shared.Response{data=dto.UpsertChallengeProgressResponse}
// @Router /api/v1/challenges/{challengeId}/complete [post]
func (h *ProgressHandler) CompleteChallenge(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	challengeID := c.Params("challengeId")

	resp, err := h.progressSvc.UpsertChallengeProgress(userID, challengeID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Report a wrong answer
// @Description Debit a heart for an incorrect first-time submission
// @Tags progress
// @Produce json
// @Security Bearer
// @Param challengeId path string true "Challenge ID"
// @Success 200 {object} shared.Response{data=dto.ReduceHeartsResponse}
// @Router /api/v1/challenges/{challengeId}/mistake [post]
func (h *ProgressHandler) ReduceHearts(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	challengeID := c.Params("challengeId")

	resp, err := h.progressSvc.ReduceHearts(userID, challengeID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Refill hearts
// @Description Convert points into a full heart bar
// @Tags progress
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.RefillHeartsResponse}
// @Router /api/v1/hearts/refill [post]
func (h *ProgressHandler) RefillHearts(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.progressSvc.RefillHeartsWithPoints(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Get user state
// @Description Hearts, points and last position
// @Tags progress
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.UserStateResponse}
// @Router /api/v1/user/state [get]
func (h *ProgressHandler) GetUserState(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	state, err := h.progressSvc.GetUserState(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", state)
}

// @Summary Set active course
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.SetActiveCourseRequest true "Course"
// @Success 200 {object} shared.Response{data=dto.UserStateResponse}
// @Router /api/v1/user/active-course [post]
func (h *ProgressHandler) SetActiveCourse(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.SetActiveCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	if req.CourseID == "" {
		return shared.NewBadRequestError(nil, "course_id is required")
	}

	state, err := h.progressSvc.SetActiveCourse(userID, req.CourseID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", state)
}

// @Summary Get course progress
// @Description Cached completion percentage for a course
// @Tags progress
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Success 200 {object} shared.Response{data=dto.CourseProgressResponse}
// @Router /api/v1/courses/{courseId}/progress [get]
func (h *ProgressHandler) GetCourseProgress(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	courseID := c.Params("courseId")

	resp, err := h.progressSvc.GetCourseProgress(userID, courseID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Recompute course progress
// @Description Force a rebuild of the aggregate from the ledger
// @Tags progress
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Success 200 {object} shared.Response{data=dto.CourseProgressResponse}
// @Router /api/v1/courses/{courseId}/progress/recompute [post]
func (h *ProgressHandler) RecomputeCourseProgress(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	courseID := c.Params("courseId")

	resp, err := h.progressSvc.RecomputeCourseProgress(userID, courseID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Store resume hint
// @Description Save the client's last position in a lesson (disposable cache)
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param lessonId path string true "Lesson ID"
// @Param hint body dto.ResumeHint true "Position snapshot"
// @Success 200 {object} shared.Response
// @Router /api/v1/lessons/{lessonId}/resume-hint [post]
func (h *ProgressHandler) SaveResumeHint(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var hint dto.ResumeHint
	if err := c.BodyParser(&hint); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	hint.LessonID = c.Params("lessonId")

	if err := h.progressSvc.SaveResumeHint(userID, hint); err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", nil)
}

// @Summary Get resume hint
// @Tags progress
// @Produce json
// @Security Bearer
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} shared.Response{data=dto.ResumeHint}
// @Router /api/v1/lessons/{lessonId}/resume-hint [get]
func (h *ProgressHandler) GetResumeHint(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	lessonID := c.Params("lessonId")

	hint, err := h.progressSvc.GetResumeHint(userID, lessonID)
	if err != nil {
		return err
	}
	if hint == nil {
		return shared.ResponseNotFound(c)
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", hint)
}

// @Summary Leaderboard
// @Description Points-ordered top learners
// @Tags progress
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Router /api/v1/leaderboard [get]
func (h *ProgressHandler) GetLeaderboard(c *fiber.Ctx) error {
	resp, err := h.progressSvc.GetLeaderboard()
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}
