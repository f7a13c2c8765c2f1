// services/postgres.go
package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lingoleap-app/lingo_api/model"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

const POSTGRES_SVC = "postgres_svc"

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" {
		host := envOr("DB_HOST", "localhost")
		port := envOr("DB_PORT", "5432")
		user := envOr("DB_USER", "postgres")
		password := envOr("DB_PASSWORD", "postgres")
		dbname := envOr("DB_NAME", "lingo_api")
		sslmode := envOr("DB_SSLMODE", "disable")
		timezone := envOr("DB_TIMEZONE", "UTC")

		ds.database = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			host, user, password, dbname, port, sslmode, timezone)
	}

	return ds.DefaultService.Configure(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (ds *PostgresService) Start() (err error) {
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		ds.db, err = gorm.Open(postgres.Open(ds.database), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Error),
			TranslateError: true,
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				if pingErr := sqlDB.Ping(); pingErr == nil {
					log.Println("Successfully connected to database")
					break
				} else {
					err = pingErr
				}
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	return ds.migrate()
}

func (ds *PostgresService) migrate() error {
	models := []interface{}{
		&model.User{},
		&model.Course{},
		&model.Unit{},
		&model.Chapter{},
		&model.Lesson{},
		&model.Challenge{},
		&model.ChallengeOption{},
		&model.UserState{},
		&model.ChallengeProgress{},
		&model.CourseProgress{},
		&model.UserSubscription{},
	}

	if err := ds.db.AutoMigrate(models...); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.Println("Database migrated successfully")
	return nil
}

func (ds *PostgresService) Shutdown() {
	if ds.db != nil {
		if sqlDB, err := ds.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func (ds *PostgresService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		} else {
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

func newID() string {
	id, _ := uuid.NewV7()
	return id.String()
}

// ==================== USER METHODS ====================

func (ds *PostgresService) CreateUser(user *model.User) (*model.User, error) {
	if user.ID == "" {
		user.ID = newID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	if err := ds.db.Create(user).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return user, nil
}

func (ds *PostgresService) GetUserByID(userID string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &user, nil
}

func (ds *PostgresService) GetUserByEmailOrUsername(identifier string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("LOWER(email) = LOWER(?) OR LOWER(username) = LOWER(?)",
		identifier, identifier).First(&user).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &user, nil
}

func (ds *PostgresService) TouchUserLogin(userID string) error {
	now := time.Now()
	if err := ds.db.Model(&model.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"last_login_at": now, "updated_at": now}).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// ==================== CATALOG METHODS ====================

func (ds *PostgresService) CreateCourse(course *model.Course) (*model.Course, error) {
	if course.ID == "" {
		course.ID = newID()
	}
	course.CreatedAt = time.Now()
	course.UpdatedAt = time.Now()

	if err := ds.db.Create(course).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return course, nil
}

func (ds *PostgresService) GetCourses() ([]model.Course, error) {
	var courses []model.Course
	if err := ds.db.Where("is_active = ?", true).Order("title").Find(&courses).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return courses, nil
}

func (ds *PostgresService) GetCourse(courseID string) (*model.Course, error) {
	var course model.Course
	if err := ds.db.Where("id = ?", courseID).First(&course).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &course, nil
}

// GetCourseSubtree loads the whole unit/lesson/challenge subtree for a course
// in catalog order. The aggregation and lock rules both need the full tree.
func (ds *PostgresService) GetCourseSubtree(courseID string) (*model.Course, error) {
	course, err := loadCourseSubtree(ds.db, courseID)
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return course, nil
}

func (ds *PostgresService) CreateUnit(unit *model.Unit) (*model.Unit, error) {
	if unit.ID == "" {
		unit.ID = newID()
	}
	unit.CreatedAt = time.Now()
	unit.UpdatedAt = time.Now()

	if err := ds.db.Create(unit).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return unit, nil
}

func (ds *PostgresService) GetUnit(unitID string) (*model.Unit, error) {
	var unit model.Unit
	if err := ds.db.Where("id = ?", unitID).First(&unit).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &unit, nil
}

func (ds *PostgresService) CreateLesson(lesson *model.Lesson) (*model.Lesson, error) {
	if lesson.ID == "" {
		lesson.ID = newID()
	}
	lesson.CreatedAt = time.Now()
	lesson.UpdatedAt = time.Now()

	if err := ds.db.Create(lesson).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return lesson, nil
}

func (ds *PostgresService) GetLesson(lessonID string) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := ds.db.Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &lesson, nil
}

func (ds *PostgresService) GetLessonWithChallenges(lessonID string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := ds.db.
		Preload("Challenges", func(db *gorm.DB) *gorm.DB {
			return db.Order("challenges.\"order\"")
		}).
		Preload("Challenges.Options").
		Where("id = ?", lessonID).
		First(&lesson).Error
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return &lesson, nil
}

func (ds *PostgresService) CreateChallenge(challenge *model.Challenge) (*model.Challenge, error) {
	if challenge.ID == "" {
		challenge.ID = newID()
	}
	challenge.CreatedAt = time.Now()
	challenge.UpdatedAt = time.Now()
	for i := range challenge.Options {
		if challenge.Options[i].ID == "" {
			challenge.Options[i].ID = newID()
		}
		challenge.Options[i].ChallengeID = challenge.ID
		challenge.Options[i].CreatedAt = challenge.CreatedAt
		challenge.Options[i].UpdatedAt = challenge.UpdatedAt
	}

	if err := ds.db.Create(challenge).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return challenge, nil
}

func (ds *PostgresService) GetChallenge(challengeID string) (*model.Challenge, error) {
	var challenge model.Challenge
	if err := ds.db.Preload("Options").Where("id = ?", challengeID).
		First(&challenge).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &challenge, nil
}

// ==================== USER STATE METHODS ====================

func (ds *PostgresService) GetUserState(userID string) (*model.UserState, error) {
	var state model.UserState
	if err := ds.db.Where("user_id = ?", userID).First(&state).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &state, nil
}

func (ds *PostgresService) CreateUserState(state *model.UserState) (*model.UserState, error) {
	if state.ID == "" {
		state.ID = newID()
	}
	state.CreatedAt = time.Now()
	state.UpdatedAt = time.Now()

	if err := ds.db.Create(state).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return state, nil
}

func (ds *PostgresService) UpdateUserState(state *model.UserState) error {
	state.UpdatedAt = time.Now()
	if err := ds.db.Save(state).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// ==================== LEDGER METHODS ====================

func (ds *PostgresService) GetChallengeProgress(userID, challengeID string) (*model.ChallengeProgress, error) {
	var entry model.ChallengeProgress
	if err := ds.db.Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&entry).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &entry, nil
}

// GetCompletedChallengeIDs returns the set of completed challenge ids for a
// user restricted to the given challenges.
func (ds *PostgresService) GetCompletedChallengeIDs(userID string, challengeIDs []string) (map[string]bool, error) {
	completed, err := completedChallengeIDs(ds.db, userID, challengeIDs)
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return completed, nil
}

// ==================== COURSE PROGRESS METHODS ====================

func (ds *PostgresService) GetCourseProgress(userID, courseID string) (*model.CourseProgress, error) {
	var cp model.CourseProgress
	if err := ds.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&cp).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &cp, nil
}

// ==================== SUBSCRIPTION METHODS ====================

func (ds *PostgresService) GetUserSubscription(userID string) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	if err := ds.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &sub, nil
}

func (ds *PostgresService) UpsertUserSubscription(sub *model.UserSubscription) error {
	existing, err := ds.GetUserSubscription(sub.UserID)
	if err == nil {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		sub.UpdatedAt = time.Now()
		if err := ds.db.Save(sub).Error; err != nil {
			return ds.HandleError(err)
		}
		return nil
	}

	if sub.ID == "" {
		sub.ID = newID()
	}
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = time.Now()
	if err := ds.db.Create(sub).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// DeleteExpiredSubscriptions removes subscription rows whose period ended
// before the cutoff. Entitlement checks only care about the period end, so
// stale rows are pure dead weight.
func (ds *PostgresService) DeleteExpiredSubscriptions(before time.Time) (int64, error) {
	res := ds.db.Where("current_period_end < ?", before).Delete(&model.UserSubscription{})
	if res.Error != nil {
		return 0, ds.HandleError(res.Error)
	}
	return res.RowsAffected, nil
}

// ==================== LEADERBOARD METHODS ====================

type LeaderboardRow struct {
	UserID   string
	Username string
	Points   int
}

func (ds *PostgresService) GetLeaderboard(limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := ds.db.Model(&model.UserState{}).
		Select("user_states.user_id, users.username, user_states.points").
		Joins("JOIN users ON users.id = user_states.user_id").
		Order("user_states.points DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return rows, nil
}
