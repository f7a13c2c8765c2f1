// services/progress.go
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lingoleap-app/lingo_api/dto"
	"github.com/lingoleap-app/lingo_api/model"
	"github.com/lingoleap-app/lingo_api/shared"
)

// ProgressService is the progress and gamification engine. It owns UserState,
// the challenge completion ledger and the per-course progress aggregate, and
// is the only writer of all three.
type ProgressService struct {
	context.DefaultService

	sqlSvc       *PostgresService
	redisSvc     *RedisService
	entitlements EntitlementOracle
}

const PROGRESS_SVC = "progress_svc"

// EntitlementOracle answers whether a user currently bypasses the hearts
// gate. The default implementation reads the subscription table; tests and
// future billing integrations can swap it.
type EntitlementOracle interface {
	HasActiveSubscription(userID string) bool
}

type subscriptionOracle struct {
	sqlSvc *PostgresService
}

func (o subscriptionOracle) HasActiveSubscription(userID string) bool {
	sub, err := o.sqlSvc.GetUserSubscription(userID)
	if err != nil {
		return false
	}
	return sub.IsActive(time.Now())
}

func (svc ProgressService) Id() string {
	return PROGRESS_SVC
}

func (svc *ProgressService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ProgressService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.entitlements = subscriptionOracle{sqlSvc: svc.sqlSvc}
	return nil
}

// Sentinels for business refusals inside the transaction closures. They roll
// the transaction back (nothing has been mutated on these paths) and get
// translated into typed response payloads on the way out.
var (
	errHeartsExhausted    = errors.New("hearts exhausted")
	errInvalidChallenge   = errors.New("invalid challenge")
	errPracticeOnly       = errors.New("practice replay")
	errHeartsFull         = errors.New("hearts already full")
	errInsufficientPoints = errors.New("insufficient points")
)

// ==================== CHALLENGE COMPLETION ====================

// UpsertChallengeProgress records a correct answer for a challenge. The whole
// read-gate-write-recompute sequence runs in one transaction so a mid-way
// failure cannot leave points credited with a stale aggregate.
func (svc *ProgressService) UpsertChallengeProgress(userID, challengeID string) (*dto.UpsertChallengeProgressResponse, error) {
	challenge, err := svc.sqlSvc.GetChallenge(challengeID)
	if err != nil {
		return &dto.UpsertChallengeProgressResponse{Error: shared.ErrCodeInvalidChallenge}, nil
	}

	if challenge.Type == shared.ChallengeTypeSelect && len(challenge.Options) == 0 {
		log.WithField("challenge_id", challengeID).Error("SELECT challenge has no options, refusing to grade")
		return &dto.UpsertChallengeProgressResponse{Error: shared.ErrCodeInvalidChallenge}, nil
	}

	// Resolve ancestry up front: the aggregate we must update belongs to the
	// owning course. A challenge whose lesson or unit cannot be resolved is a
	// content-authoring defect, not something to paper over with the user's
	// active course.
	lesson, err := svc.sqlSvc.GetLesson(challenge.LessonID)
	if err != nil {
		return nil, shared.NewInvalidContentError(err, "Challenge has no resolvable lesson")
	}
	unit, err := svc.sqlSvc.GetUnit(lesson.UnitID)
	if err != nil {
		return nil, shared.NewInvalidContentError(err, "Lesson has no resolvable unit")
	}
	courseID := unit.CourseID

	entitled := svc.entitlements.HasActiveSubscription(userID)

	var resp dto.UpsertChallengeProgressResponse

	txErr := svc.sqlSvc.Db().Transaction(func(tx *gorm.DB) error {
		state, err := getOrCreateUserState(tx, userID)
		if err != nil {
			return err
		}

		existing := &model.ChallengeProgress{}
		err = tx.Where("user_id = ? AND challenge_id = ?", userID, challengeID).First(existing).Error
		isPractice := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if state.Hearts == 0 && !isPractice && !entitled {
			return errHeartsExhausted
		}

		if isPractice {
			// Re-marking an already-completed entry is a no-op in effect.
			existing.Completed = true
			existing.UpdatedAt = time.Now()
			if err := tx.Save(existing).Error; err != nil {
				return err
			}
			// Practice is the one path where a correct answer regenerates a
			// heart.
			state.Hearts = minInt(state.Hearts+1, shared.MaxHearts)
		} else {
			entry := &model.ChallengeProgress{
				ID:          newID(),
				UserID:      userID,
				ChallengeID: challengeID,
				Completed:   true,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}
			// The unique index on (user_id, challenge_id) is the arbiter for
			// concurrent first submissions: if a parallel request won the
			// insert, this one is a practice replay after all.
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}},
				DoNothing: true,
			}).Create(entry)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				isPractice = true
				state.Hearts = minInt(state.Hearts+1, shared.MaxHearts)
			}
		}

		state.Points += shared.PointsPerChallenge
		state.LastActiveUnitID = &unit.ID
		state.LastLessonID = &lesson.ID
		state.UpdatedAt = time.Now()
		if err := tx.Save(state).Error; err != nil {
			return err
		}

		if err := recomputeCourseProgress(tx, userID, courseID, &unit.ID, &lesson.ID); err != nil {
			return err
		}

		resp = dto.UpsertChallengeProgressResponse{
			Success:  true,
			Practice: isPractice,
			Hearts:   state.Hearts,
			Points:   state.Points,
		}
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, errHeartsExhausted) {
			recordHeartsExhausted()
			return &dto.UpsertChallengeProgressResponse{Error: shared.ErrCodeHearts}, nil
		}
		return nil, shared.NewInternalError(txErr, "Failed to record challenge progress")
	}

	recordChallengeCompletion(resp.Practice)
	return &resp, nil
}

// ==================== HEARTS ECONOMY ====================

// ReduceHearts debits one heart for an incorrect first-time submission.
// Practice replays and entitled users never pay.
func (svc *ProgressService) ReduceHearts(userID, challengeID string) (*dto.ReduceHeartsResponse, error) {
	if _, err := svc.sqlSvc.GetChallenge(challengeID); err != nil {
		return nil, shared.NewNotFoundError(err, "Challenge not found")
	}

	entitled := svc.entitlements.HasActiveSubscription(userID)

	var resp dto.ReduceHeartsResponse

	txErr := svc.sqlSvc.Db().Transaction(func(tx *gorm.DB) error {
		state, err := getOrCreateUserState(tx, userID)
		if err != nil {
			return err
		}

		var entry model.ChallengeProgress
		err = tx.Where("user_id = ? AND challenge_id = ?", userID, challengeID).First(&entry).Error
		if err == nil {
			return errPracticeOnly
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if entitled {
			resp = dto.ReduceHeartsResponse{Success: true, Hearts: state.Hearts}
			return nil
		}

		if state.Hearts == 0 {
			return errHeartsExhausted
		}

		state.Hearts--
		state.UpdatedAt = time.Now()
		if err := tx.Save(state).Error; err != nil {
			return err
		}

		resp = dto.ReduceHeartsResponse{Success: true, Hearts: state.Hearts}
		return nil
	})

	if txErr != nil {
		switch {
		case errors.Is(txErr, errPracticeOnly):
			return &dto.ReduceHeartsResponse{Error: shared.ErrCodePractice}, nil
		case errors.Is(txErr, errHeartsExhausted):
			recordHeartsExhausted()
			return &dto.ReduceHeartsResponse{Error: shared.ErrCodeHearts}, nil
		}
		return nil, shared.NewInternalError(txErr, "Failed to reduce hearts")
	}

	if !entitled {
		recordHeartsSpent()
	}
	return &resp, nil
}

// RefillHeartsWithPoints converts banked points into a full heart bar.
func (svc *ProgressService) RefillHeartsWithPoints(userID string) (*dto.RefillHeartsResponse, error) {
	var resp dto.RefillHeartsResponse

	txErr := svc.sqlSvc.Db().Transaction(func(tx *gorm.DB) error {
		state, err := getOrCreateUserState(tx, userID)
		if err != nil {
			return err
		}

		if state.Hearts == shared.MaxHearts {
			return errHeartsFull
		}
		if state.Points < shared.RefillCost {
			return errInsufficientPoints
		}

		state.Hearts = shared.MaxHearts
		state.Points -= shared.RefillCost
		state.UpdatedAt = time.Now()
		if err := tx.Save(state).Error; err != nil {
			return err
		}

		resp = dto.RefillHeartsResponse{Success: true, Hearts: state.Hearts, Points: state.Points}
		return nil
	})

	if txErr != nil {
		switch {
		case errors.Is(txErr, errHeartsFull):
			return &dto.RefillHeartsResponse{Error: shared.ErrCodeHeartsFull}, nil
		case errors.Is(txErr, errInsufficientPoints):
			return &dto.RefillHeartsResponse{Error: shared.ErrCodeInsufficientPoints}, nil
		}
		return nil, shared.NewInternalError(txErr, "Failed to refill hearts")
	}

	recordHeartRefill()
	return &resp, nil
}

// ==================== USER STATE ====================

func (svc *ProgressService) GetUserState(userID string) (*dto.UserStateResponse, error) {
	state, err := getOrCreateUserState(svc.sqlSvc.Db(), userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load user state")
	}

	return &dto.UserStateResponse{
		UserID:           state.UserID,
		Hearts:           state.Hearts,
		Points:           state.Points,
		ActiveCourseID:   state.ActiveCourseID,
		LastActiveUnitID: state.LastActiveUnitID,
		LastLessonID:     state.LastLessonID,
		HasSubscription:  svc.entitlements.HasActiveSubscription(userID),
	}, nil
}

func (svc *ProgressService) SetActiveCourse(userID, courseID string) (*dto.UserStateResponse, error) {
	if _, err := svc.sqlSvc.GetCourse(courseID); err != nil {
		return nil, shared.NewNotFoundError(err, "Course not found")
	}

	state, err := getOrCreateUserState(svc.sqlSvc.Db(), userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load user state")
	}

	state.ActiveCourseID = &courseID
	state.LastActiveUnitID = nil
	state.LastLessonID = nil

	// Restore the last known position inside the newly selected course, if
	// the learner has been there before.
	if cp, err := svc.sqlSvc.GetCourseProgress(userID, courseID); err == nil {
		state.LastActiveUnitID = cp.LastActiveUnitID
		state.LastLessonID = cp.LastLessonID
	}

	if err := svc.sqlSvc.UpdateUserState(state); err != nil {
		return nil, shared.NewInternalError(err, "Failed to update user state")
	}

	return svc.GetUserState(userID)
}

// getOrCreateUserState bootstraps the per-learner record lazily on first
// read: full hearts, zero points.
func getOrCreateUserState(db *gorm.DB, userID string) (*model.UserState, error) {
	var state model.UserState
	err := db.Where("user_id = ?", userID).First(&state).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	state = model.UserState{
		ID:        newID(),
		UserID:    userID,
		Hearts:    shared.MaxHearts,
		Points:    0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&state).Error; err != nil {
		return nil, err
	}

	// A concurrent bootstrap may have won the insert; re-read either way so
	// the caller always sees the durable row.
	if err := db.Where("user_id = ?", userID).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// ==================== COURSE PROGRESS AGGREGATE ====================

// GetCourseProgress serves the cached aggregate, computing and persisting it
// on first access for a (user, course) pair.
func (svc *ProgressService) GetCourseProgress(userID, courseID string) (*dto.CourseProgressResponse, error) {
	if _, err := svc.sqlSvc.GetCourse(courseID); err != nil {
		return nil, shared.NewNotFoundError(err, "Course not found")
	}

	cp, err := svc.sqlSvc.GetCourseProgress(userID, courseID)
	if err != nil {
		if err := recomputeCourseProgress(svc.sqlSvc.Db(), userID, courseID, nil, nil); err != nil {
			return nil, shared.NewInternalError(err, "Failed to compute course progress")
		}
		cp, err = svc.sqlSvc.GetCourseProgress(userID, courseID)
		if err != nil {
			return nil, shared.NewInternalError(err, "Failed to load course progress")
		}
	}

	return &dto.CourseProgressResponse{
		CourseID:         cp.CourseID,
		Progress:         cp.Progress,
		Completed:        cp.Completed,
		LastActiveUnitID: cp.LastActiveUnitID,
		LastLessonID:     cp.LastLessonID,
	}, nil
}

// RecomputeCourseProgress rebuilds the aggregate from the ledger, e.g. after
// an out-of-band ledger change.
func (svc *ProgressService) RecomputeCourseProgress(userID, courseID string) (*dto.CourseProgressResponse, error) {
	if err := recomputeCourseProgress(svc.sqlSvc.Db(), userID, courseID, nil, nil); err != nil {
		return nil, shared.NewInternalError(err, "Failed to recompute course progress")
	}
	return svc.GetCourseProgress(userID, courseID)
}

// recomputeCourseProgress re-derives the percentage from the full course
// subtree and the ledger, then upserts the aggregate row. Lesson and unit
// completeness are conjunctions, so the whole subtree is re-scanned rather
// than patched incrementally. lastUnitID/lastLessonID update the resume
// position when non-nil.
func recomputeCourseProgress(db *gorm.DB, userID, courseID string, lastUnitID, lastLessonID *string) error {
	course, err := loadCourseSubtree(db, courseID)
	if err != nil {
		return err
	}

	done, err := completedChallengeIDs(db, userID, ChallengeIDsOf(course.Units))
	if err != nil {
		return err
	}

	pct := coursePercentage(course.Units, done)

	var cp model.CourseProgress
	err = db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cp = model.CourseProgress{
			ID:        newID(),
			UserID:    userID,
			CourseID:  courseID,
			CreatedAt: time.Now(),
		}
	} else if err != nil {
		return err
	}

	cp.Progress = pct
	cp.Completed = pct == 100
	if lastUnitID != nil {
		cp.LastActiveUnitID = lastUnitID
	}
	if lastLessonID != nil {
		cp.LastLessonID = lastLessonID
	}
	cp.UpdatedAt = time.Now()

	return db.Save(&cp).Error
}

// coursePercentage derives the completion percentage of a course: the share
// of lessons whose every challenge is completed, rounded to the nearest
// integer. A course without lessons is 0%.
func coursePercentage(units []model.Unit, done map[string]bool) int {
	totalLessons := 0
	completedLessons := 0
	for ui := range units {
		for li := range units[ui].Lessons {
			totalLessons++
			if IsLessonComplete(&units[ui].Lessons[li], done) {
				completedLessons++
			}
		}
	}

	if totalLessons == 0 {
		return 0
	}
	return int(math.Round(float64(completedLessons) / float64(totalLessons) * 100))
}

func loadCourseSubtree(db *gorm.DB, courseID string) (*model.Course, error) {
	var course model.Course
	err := db.
		Preload("Units", func(db *gorm.DB) *gorm.DB {
			return db.Order("units.\"order\"")
		}).
		Preload("Units.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.\"order\"")
		}).
		Preload("Units.Lessons.Challenges", func(db *gorm.DB) *gorm.DB {
			return db.Order("challenges.\"order\"")
		}).
		Where("id = ?", courseID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func completedChallengeIDs(db *gorm.DB, userID string, challengeIDs []string) (map[string]bool, error) {
	done := make(map[string]bool, len(challengeIDs))
	if len(challengeIDs) == 0 {
		return done, nil
	}

	var entries []model.ChallengeProgress
	if err := db.Where("user_id = ? AND challenge_id IN ? AND completed = ?",
		userID, challengeIDs, true).Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		done[e.ChallengeID] = true
	}
	return done, nil
}

// ==================== RESUME HINTS ====================

const resumeHintTTL = 24 * time.Hour

// SaveResumeHint stores the client's last-position snapshot. It is a
// disposable hint: the ledger stays authoritative and losing the hint only
// costs the client its scroll position.
func (svc *ProgressService) SaveResumeHint(userID string, hint dto.ResumeHint) error {
	if svc.redisSvc == nil || !svc.redisSvc.Ready() {
		return nil
	}
	hint.UpdatedAt = time.Now()
	key := fmt.Sprintf("resume:%s:%s", userID, hint.LessonID)
	if err := svc.redisSvc.SetJSON(key, hint, resumeHintTTL); err != nil {
		log.WithError(err).Warn("Failed to store resume hint")
	}
	return nil
}

func (svc *ProgressService) GetResumeHint(userID, lessonID string) (*dto.ResumeHint, error) {
	if svc.redisSvc == nil || !svc.redisSvc.Ready() {
		return nil, nil
	}
	key := fmt.Sprintf("resume:%s:%s", userID, lessonID)
	var hint dto.ResumeHint
	ok, err := svc.redisSvc.GetJSON(key, &hint)
	if err != nil || !ok {
		return nil, nil
	}
	return &hint, nil
}

// ==================== LEADERBOARD ====================

const (
	leaderboardCacheKey = "leaderboard:points"
	leaderboardCacheTTL = time.Minute
	leaderboardSize     = 50
)

func (svc *ProgressService) GetLeaderboard() (*dto.LeaderboardResponse, error) {
	if svc.redisSvc != nil && svc.redisSvc.Ready() {
		var cached dto.LeaderboardResponse
		if ok, err := svc.redisSvc.GetJSON(leaderboardCacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}
	return svc.RefreshLeaderboard()
}

// RefreshLeaderboard recomputes the points ranking and re-primes the cache.
// Also run periodically by the scheduler.
func (svc *ProgressService) RefreshLeaderboard() (*dto.LeaderboardResponse, error) {
	rows, err := svc.sqlSvc.GetLeaderboard(leaderboardSize)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load leaderboard")
	}

	resp := &dto.LeaderboardResponse{Total: len(rows)}
	for i, row := range rows {
		resp.Entries = append(resp.Entries, dto.LeaderboardEntry{
			UserID:   row.UserID,
			Username: row.Username,
			Points:   row.Points,
			Rank:     i + 1,
		})
	}

	if svc.redisSvc != nil && svc.redisSvc.Ready() {
		if err := svc.redisSvc.SetJSON(leaderboardCacheKey, resp, leaderboardCacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache leaderboard")
		}
	}

	return resp, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
