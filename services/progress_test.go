package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lingoleap-app/lingo_api/model"
	"github.com/lingoleap-app/lingo_api/shared"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	// sqlite :memory: is per-connection; pin the pool to one.
	sqlDB.SetMaxOpenConns(1)

	ds := &PostgresService{db: db}
	if err := ds.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type stubOracle struct {
	entitled bool
}

func (o *stubOracle) HasActiveSubscription(string) bool { return o.entitled }

func newEngine(t *testing.T) (*ProgressService, *PostgresService, *stubOracle) {
	t.Helper()
	db := newTestDB(t)
	ds := &PostgresService{db: db}
	oracle := &stubOracle{}
	svc := &ProgressService{sqlSvc: ds, entitlements: oracle}
	return svc, ds, oracle
}

// courseFixture is two units of two lessons each. Lesson 0 holds challenges
// 0 and 1, the remaining lessons hold one challenge apiece (2, 3, 4).
type courseFixture struct {
	courseID   string
	units      []string
	lessons    []string
	challenges []string
}

func seedCourse(t *testing.T, db *gorm.DB) courseFixture {
	t.Helper()

	fx := courseFixture{courseID: newID()}
	if err := db.Create(&model.Course{ID: fx.courseID, Title: "Spanish", IsActive: true}).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}

	lessonsPerUnit := [][]int{{2, 1}, {1, 1}}
	for ui, counts := range lessonsPerUnit {
		unitID := newID()
		fx.units = append(fx.units, unitID)
		if err := db.Create(&model.Unit{
			ID: unitID, CourseID: fx.courseID, Title: "Unit", Order: ui + 1,
		}).Error; err != nil {
			t.Fatalf("create unit: %v", err)
		}

		for li, challengeCount := range counts {
			lessonID := newID()
			fx.lessons = append(fx.lessons, lessonID)
			if err := db.Create(&model.Lesson{
				ID: lessonID, UnitID: unitID, Title: "Lesson", Order: li + 1,
			}).Error; err != nil {
				t.Fatalf("create lesson: %v", err)
			}

			for ci := 0; ci < challengeCount; ci++ {
				challengeID := newID()
				fx.challenges = append(fx.challenges, challengeID)
				if err := db.Create(&model.Challenge{
					ID: challengeID, LessonID: lessonID,
					Type: shared.ChallengeTypeSelect, Question: "?", Order: ci + 1,
				}).Error; err != nil {
					t.Fatalf("create challenge: %v", err)
				}
				if err := db.Create(&model.ChallengeOption{
					ID: newID(), ChallengeID: challengeID, Text: "a", Correct: true,
				}).Error; err != nil {
					t.Fatalf("create option: %v", err)
				}
			}
		}
	}
	return fx
}

func userState(t *testing.T, db *gorm.DB, userID string) *model.UserState {
	t.Helper()
	var state model.UserState
	if err := db.Where("user_id = ?", userID).First(&state).Error; err != nil {
		t.Fatalf("load user state: %v", err)
	}
	return &state
}

func setHearts(t *testing.T, db *gorm.DB, userID string, hearts int) {
	t.Helper()
	state := userState(t, db, userID)
	state.Hearts = hearts
	if err := db.Save(state).Error; err != nil {
		t.Fatalf("set hearts: %v", err)
	}
}

func TestFirstCompletion(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	resp, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !resp.Success || resp.Practice {
		t.Fatalf("want first completion, got %+v", resp)
	}
	if resp.Hearts != shared.MaxHearts {
		t.Errorf("hearts = %d, want %d", resp.Hearts, shared.MaxHearts)
	}
	if resp.Points != shared.PointsPerChallenge {
		t.Errorf("points = %d, want %d", resp.Points, shared.PointsPerChallenge)
	}

	var count int64
	ds.Db().Model(&model.ChallengeProgress{}).
		Where("user_id = ? AND challenge_id = ?", "user-1", fx.challenges[0]).
		Count(&count)
	if count != 1 {
		t.Fatalf("ledger rows = %d, want 1", count)
	}
}

func TestPracticeReplay(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	setHearts(t, ds.Db(), "user-1", 3)

	resp, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("practice upsert: %v", err)
	}
	if !resp.Success || !resp.Practice {
		t.Fatalf("want practice replay, got %+v", resp)
	}
	if resp.Hearts != 4 {
		t.Errorf("hearts = %d, want 4 (practice regenerates one)", resp.Hearts)
	}
	if resp.Points != 2*shared.PointsPerChallenge {
		t.Errorf("points = %d, want %d", resp.Points, 2*shared.PointsPerChallenge)
	}

	// The ledger stays single-entry per (user, challenge).
	var count int64
	ds.Db().Model(&model.ChallengeProgress{}).
		Where("user_id = ? AND challenge_id = ?", "user-1", fx.challenges[0]).
		Count(&count)
	if count != 1 {
		t.Fatalf("ledger rows = %d, want 1", count)
	}
}

func TestPracticeHeartCappedAtMax(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	resp, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("practice upsert: %v", err)
	}
	if resp.Hearts != shared.MaxHearts {
		t.Errorf("hearts = %d, want capped at %d", resp.Hearts, shared.MaxHearts)
	}
}

func TestHeartsGateBlocksFirstAttempt(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	if _, err := svc.GetUserState("user-1"); err != nil {
		t.Fatalf("bootstrap state: %v", err)
	}
	setHearts(t, ds.Db(), "user-1", 0)

	resp, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if resp.Error != shared.ErrCodeHearts {
		t.Fatalf("error = %q, want %q", resp.Error, shared.ErrCodeHearts)
	}

	// Nothing was mutated on the refusal path.
	var count int64
	ds.Db().Model(&model.ChallengeProgress{}).Where("user_id = ?", "user-1").Count(&count)
	if count != 0 {
		t.Errorf("ledger rows = %d, want 0", count)
	}
	if state := userState(t, ds.Db(), "user-1"); state.Points != 0 {
		t.Errorf("points = %d, want 0", state.Points)
	}
}

func TestHeartsGateAllowsPracticeAtZero(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	setHearts(t, ds.Db(), "user-1", 0)

	resp, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("practice upsert: %v", err)
	}
	if !resp.Success || !resp.Practice {
		t.Fatalf("want practice at zero hearts, got %+v", resp)
	}
	if resp.Hearts != 1 {
		t.Errorf("hearts = %d, want 1", resp.Hearts)
	}
}

func TestHeartsGateBypassForEntitled(t *testing.T) {
	svc, ds, oracle := newEngine(t)
	fx := seedCourse(t, ds.Db())
	oracle.entitled = true

	if _, err := svc.GetUserState("user-1"); err != nil {
		t.Fatalf("bootstrap state: %v", err)
	}
	setHearts(t, ds.Db(), "user-1", 0)

	resp, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !resp.Success || resp.Practice {
		t.Fatalf("want first completion for entitled user, got %+v", resp)
	}
	if resp.Hearts != 0 {
		t.Errorf("hearts = %d, want 0 (entitlement does not regenerate)", resp.Hearts)
	}
}

func TestUpsertUnknownChallenge(t *testing.T) {
	svc, _, _ := newEngine(t)

	resp, err := svc.UpsertChallengeProgress("user-1", "nope")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if resp.Error != shared.ErrCodeInvalidChallenge {
		t.Fatalf("error = %q, want %q", resp.Error, shared.ErrCodeInvalidChallenge)
	}
}

func TestReduceHearts(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	resp, err := svc.ReduceHearts("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !resp.Success || resp.Hearts != shared.MaxHearts-1 {
		t.Fatalf("want %d hearts, got %+v", shared.MaxHearts-1, resp)
	}
}

func TestReduceHeartsPracticeIsFree(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	resp, err := svc.ReduceHearts("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if resp.Error != shared.ErrCodePractice {
		t.Fatalf("error = %q, want %q", resp.Error, shared.ErrCodePractice)
	}
	if state := userState(t, ds.Db(), "user-1"); state.Hearts != shared.MaxHearts {
		t.Errorf("hearts = %d, want untouched %d", state.Hearts, shared.MaxHearts)
	}
}

func TestReduceHeartsAtZero(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	if _, err := svc.GetUserState("user-1"); err != nil {
		t.Fatalf("bootstrap state: %v", err)
	}
	setHearts(t, ds.Db(), "user-1", 0)

	resp, err := svc.ReduceHearts("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if resp.Error != shared.ErrCodeHearts {
		t.Fatalf("error = %q, want %q", resp.Error, shared.ErrCodeHearts)
	}
	if state := userState(t, ds.Db(), "user-1"); state.Hearts != 0 {
		t.Errorf("hearts = %d, want 0 (never negative)", state.Hearts)
	}
}

func TestReduceHeartsEntitledPaysNothing(t *testing.T) {
	svc, ds, oracle := newEngine(t)
	fx := seedCourse(t, ds.Db())
	oracle.entitled = true

	resp, err := svc.ReduceHearts("user-1", fx.challenges[0])
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !resp.Success || resp.Hearts != shared.MaxHearts {
		t.Fatalf("want untouched hearts for entitled user, got %+v", resp)
	}
}

func TestRefillHearts(t *testing.T) {
	svc, ds, _ := newEngine(t)

	if _, err := svc.GetUserState("user-1"); err != nil {
		t.Fatalf("bootstrap state: %v", err)
	}

	// Full bar refuses.
	resp, err := svc.RefillHeartsWithPoints("user-1")
	if err != nil {
		t.Fatalf("refill: %v", err)
	}
	if resp.Error != shared.ErrCodeHeartsFull {
		t.Fatalf("error = %q, want %q", resp.Error, shared.ErrCodeHeartsFull)
	}

	// Broke refuses.
	setHearts(t, ds.Db(), "user-1", 2)
	resp, err = svc.RefillHeartsWithPoints("user-1")
	if err != nil {
		t.Fatalf("refill: %v", err)
	}
	if resp.Error != shared.ErrCodeInsufficientPoints {
		t.Fatalf("error = %q, want %q", resp.Error, shared.ErrCodeInsufficientPoints)
	}

	// Funded succeeds and deducts exactly the cost.
	state := userState(t, ds.Db(), "user-1")
	state.Points = shared.RefillCost + 5
	if err := ds.Db().Save(state).Error; err != nil {
		t.Fatalf("fund points: %v", err)
	}

	resp, err = svc.RefillHeartsWithPoints("user-1")
	if err != nil {
		t.Fatalf("refill: %v", err)
	}
	if !resp.Success || resp.Hearts != shared.MaxHearts || resp.Points != 5 {
		t.Fatalf("want full bar and 5 points left, got %+v", resp)
	}
}

func TestGetUserStateBootstrap(t *testing.T) {
	svc, ds, _ := newEngine(t)

	state, err := svc.GetUserState("user-1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Hearts != shared.MaxHearts || state.Points != 0 {
		t.Fatalf("want fresh state (%d, 0), got (%d, %d)", shared.MaxHearts, state.Hearts, state.Points)
	}

	// Second read reuses the same row.
	if _, err := svc.GetUserState("user-1"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	var count int64
	ds.Db().Model(&model.UserState{}).Where("user_id = ?", "user-1").Count(&count)
	if count != 1 {
		t.Fatalf("state rows = %d, want 1", count)
	}
}

func TestCourseProgressAggregate(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	// Completing one of two challenges leaves the lesson, and so the course,
	// at zero.
	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	cp, err := svc.GetCourseProgress("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if cp.Progress != 0 {
		t.Errorf("progress = %d, want 0", cp.Progress)
	}

	// Finishing that lesson is one of four: 25%.
	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[1]); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	cp, err = svc.GetCourseProgress("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if cp.Progress != 25 {
		t.Errorf("progress = %d, want 25", cp.Progress)
	}
	if cp.Completed {
		t.Error("course marked completed at 25%")
	}

	// Finishing everything is 100% and flips the flag.
	for _, id := range fx.challenges[2:] {
		if _, err := svc.UpsertChallengeProgress("user-1", id); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	cp, err = svc.GetCourseProgress("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if cp.Progress != 100 || !cp.Completed {
		t.Fatalf("want (100, completed), got (%d, %v)", cp.Progress, cp.Completed)
	}
}

func TestCourseProgressEmptyCourse(t *testing.T) {
	svc, ds, _ := newEngine(t)

	courseID := newID()
	if err := ds.Db().Create(&model.Course{ID: courseID, Title: "Empty"}).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}

	cp, err := svc.GetCourseProgress("user-1", courseID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if cp.Progress != 0 || cp.Completed {
		t.Fatalf("want (0, incomplete) for empty course, got (%d, %v)", cp.Progress, cp.Completed)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[1]); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first, err := svc.RecomputeCourseProgress("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	second, err := svc.RecomputeCourseProgress("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if first.Progress != second.Progress || first.Completed != second.Completed {
		t.Fatalf("recompute not stable: %+v vs %+v", first, second)
	}

	var count int64
	ds.Db().Model(&model.CourseProgress{}).
		Where("user_id = ? AND course_id = ?", "user-1", fx.courseID).
		Count(&count)
	if count != 1 {
		t.Fatalf("aggregate rows = %d, want 1", count)
	}
}

func TestRecomputeReflectsLedgerChanges(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	for _, id := range fx.challenges {
		if _, err := svc.UpsertChallengeProgress("user-1", id); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	// Removing a ledger fact out of band must roll the aggregate back to what
	// the ledger implies, not to zero.
	if err := ds.Db().Where("user_id = ? AND challenge_id = ?", "user-1", fx.challenges[0]).
		Delete(&model.ChallengeProgress{}).Error; err != nil {
		t.Fatalf("delete ledger entry: %v", err)
	}

	cp, err := svc.RecomputeCourseProgress("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if cp.Progress != 75 {
		t.Errorf("progress = %d, want 75 (3 of 4 lessons)", cp.Progress)
	}
	if cp.Completed {
		t.Error("course still marked completed after ledger rollback")
	}
}

func TestSetActiveCourse(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	if _, err := svc.SetActiveCourse("user-1", "nope"); err == nil {
		t.Fatal("want error for unknown course")
	} else if appErr, ok := shared.GetAppError(err); !ok || appErr.StatusCode != 404 {
		t.Fatalf("want 404 app error, got %v", err)
	}

	state, err := svc.SetActiveCourse("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if state.ActiveCourseID == nil || *state.ActiveCourseID != fx.courseID {
		t.Fatalf("active course not set: %+v", state)
	}

	// Returning to a course restores the last recorded position.
	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	state, err = svc.SetActiveCourse("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("set active again: %v", err)
	}
	if state.LastActiveUnitID == nil || *state.LastActiveUnitID != fx.units[0] {
		t.Fatalf("position not restored: %+v", state)
	}
	if state.LastLessonID == nil || *state.LastLessonID != fx.lessons[0] {
		t.Fatalf("lesson position not restored: %+v", state)
	}
}

func TestPointsAccrueOnPractice(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())

	for i := 0; i < 3; i++ {
		if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	if state := userState(t, ds.Db(), "user-1"); state.Points != 3*shared.PointsPerChallenge {
		t.Fatalf("points = %d, want %d", state.Points, 3*shared.PointsPerChallenge)
	}
}
