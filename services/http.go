package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/lingoleap-app/lingo_api/services/handlers"
	"github.com/lingoleap-app/lingo_api/shared"
)

// AuthGuard is what the HTTP layer needs from the auth middleware service.
// Declared here so the middleware package can depend on services without a cycle.
type AuthGuard interface {
	RequiredAuth() fiber.Handler
	RequireRole(role string) fiber.Handler
}

type HttpService struct {
	context.DefaultService

	authSvc     *AuthService
	progressSvc *ProgressService
	contentSvc  *ContentService
	limiterSvc  *RateLimitService
	guard       AuthGuard

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.progressSvc = svc.Service(PROGRESS_SVC).(*ProgressService)
	svc.contentSvc = svc.Service(CONTENT_SVC).(*ContentService)
	svc.limiterSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.guard = svc.Service("auth").(AuthGuard)

	svc.app = fiber.New(fiber.Config{
		AppName:      SERVICE_NAME,
		ErrorHandler: svc.handleError,
	})

	svc.app.Use(recover.New())
	svc.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	svc.app.Use(MonitoringMiddleware())

	svc.app.Get("/ping", svc.ping)

	authHandler := handlers.NewAuthHandler(svc.authSvc)
	progressHandler := handlers.NewProgressHandler(svc.progressSvc)
	contentHandler := handlers.NewContentHandler(svc.contentSvc)

	v1 := svc.app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	auth := v1.Group("/auth")
	auth.Post("/register", svc.limiterSvc.Middleware("register"), authHandler.Register)
	auth.Post("/login", svc.limiterSvc.Middleware("login"), authHandler.Login)
	auth.Get("/me", svc.guard.RequiredAuth(), authHandler.Me)

	user := v1.Group("/user", svc.guard.RequiredAuth())
	user.Get("/state", progressHandler.GetUserState)
	user.Post("/active-course", progressHandler.SetActiveCourse)

	courses := v1.Group("/courses", svc.guard.RequiredAuth())
	courses.Get("/", contentHandler.GetCourses)
	courses.Get("/:courseId/tree", contentHandler.GetCourseTree)
	courses.Get("/:courseId/progress", progressHandler.GetCourseProgress)
	courses.Post("/:courseId/progress/recompute", progressHandler.RecomputeCourseProgress)

	lessons := v1.Group("/lessons", svc.guard.RequiredAuth())
	lessons.Get("/:lessonId", contentHandler.GetLesson)
	lessons.Post("/:lessonId/resume-hint", progressHandler.SaveResumeHint)
	lessons.Get("/:lessonId/resume-hint", progressHandler.GetResumeHint)

	challenges := v1.Group("/challenges", svc.guard.RequiredAuth())
	challenges.Post("/:challengeId/complete", svc.limiterSvc.Middleware("submit"), progressHandler.CompleteChallenge)
	challenges.Post("/:challengeId/mistake", svc.limiterSvc.Middleware("submit"), progressHandler.ReduceHearts)

	hearts := v1.Group("/hearts", svc.guard.RequiredAuth())
	hearts.Post("/refill", svc.limiterSvc.Middleware("refill"), progressHandler.RefillHearts)

	v1.Get("/leaderboard", svc.guard.RequiredAuth(), progressHandler.GetLeaderboard)

	admin := v1.Group("/admin", svc.guard.RequiredAuth(), svc.guard.RequireRole(shared.RoleAdmin))
	admin.Post("/courses", contentHandler.CreateCourse)
	admin.Post("/units", contentHandler.CreateUnit)
	admin.Post("/lessons", contentHandler.CreateLesson)
	admin.Post("/challenges", contentHandler.CreateChallenge)
	admin.Post("/challenges/import", contentHandler.ImportChallenges)

	svc.app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	log.Infof("http listening on :%v", svc.port)
	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")
	return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
}

func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= 500 {
			log.WithError(appErr.Err).Error(appErr.Message)
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).Error("unhandled error")
	return shared.ResponseInternalError(c, err)
}
