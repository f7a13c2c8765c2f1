package services

import (
	"testing"

	"github.com/lingoleap-app/lingo_api/dto"
	"github.com/lingoleap-app/lingo_api/shared"
)

func TestValidateChallengeShape(t *testing.T) {
	opts := func(correct ...bool) []dto.CreateChallengeOptionRequest {
		var out []dto.CreateChallengeOptionRequest
		for i, c := range correct {
			out = append(out, dto.CreateChallengeOptionRequest{Text: string(rune('a' + i)), Correct: c})
		}
		return out
	}

	tests := []struct {
		name          string
		challengeType string
		options       []dto.CreateChallengeOptionRequest
		wantErr       bool
	}{
		{"valid select", shared.ChallengeTypeSelect, opts(true, false, false), false},
		{"valid assist", shared.ChallengeTypeAssist, opts(true, false), false},
		{"assist with several correct", shared.ChallengeTypeAssist, opts(true, true), false},
		{"unknown type", "LISTEN", opts(true), true},
		{"lowercase type rejected", "select", opts(true), true},
		{"no options", shared.ChallengeTypeSelect, nil, true},
		{"no correct option", shared.ChallengeTypeSelect, opts(false, false), true},
		{"select with two correct", shared.ChallengeTypeSelect, opts(true, true), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChallengeShape(tt.challengeType, tt.options)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				appErr, ok := shared.GetAppError(err)
				if !ok || appErr.StatusCode != 422 {
					t.Fatalf("want 422 app error, got %v", err)
				}
			}
		})
	}
}

func TestParseOptionCell(t *testing.T) {
	options := parseOptionCell("*el hombre; la mujer ; el robot")
	if len(options) != 3 {
		t.Fatalf("got %d options, want 3", len(options))
	}
	if !options[0].Correct || options[0].Text != "el hombre" {
		t.Errorf("first option = %+v, want correct 'el hombre'", options[0])
	}
	if options[1].Correct || options[1].Text != "la mujer" {
		t.Errorf("second option = %+v, want incorrect 'la mujer'", options[1])
	}

	if got := parseOptionCell("  ;  ; "); len(got) != 0 {
		t.Errorf("blank cell produced %d options", len(got))
	}
}

func TestGetCourseTreeFlags(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())
	content := &ContentService{sqlSvc: ds}

	// Finish the first lesson.
	for _, id := range fx.challenges[:2] {
		if _, err := svc.UpsertChallengeProgress("user-1", id); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	tree, err := content.GetCourseTree("user-1", fx.courseID)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if len(tree.Units) != 2 {
		t.Fatalf("got %d units, want 2", len(tree.Units))
	}

	u0, u1 := tree.Units[0], tree.Units[1]
	if u0.Locked {
		t.Error("first unit locked")
	}
	if !u0.Lessons[0].Completed || u0.Lessons[0].Locked {
		t.Errorf("first lesson = %+v, want completed and open", u0.Lessons[0])
	}
	if u0.Lessons[1].Completed || u0.Lessons[1].Locked {
		t.Errorf("second lesson = %+v, want incomplete but open", u0.Lessons[1])
	}

	// One completed lesson opens the next unit's first lesson but not the
	// unit itself.
	if !u1.Locked {
		t.Error("second unit should stay locked until unit 1 is fully complete")
	}
	if u1.Lessons[0].Locked {
		t.Error("first lesson of second unit should be open")
	}
	if !u1.Lessons[1].Locked {
		t.Error("second lesson of second unit should be locked")
	}
}

func TestGetLessonHidesAnswerKey(t *testing.T) {
	svc, ds, _ := newEngine(t)
	fx := seedCourse(t, ds.Db())
	content := &ContentService{sqlSvc: ds}

	if _, err := svc.UpsertChallengeProgress("user-1", fx.challenges[0]); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	lesson, err := content.GetLesson("user-1", fx.lessons[0])
	if err != nil {
		t.Fatalf("get lesson: %v", err)
	}
	if len(lesson.Challenges) != 2 {
		t.Fatalf("got %d challenges, want 2", len(lesson.Challenges))
	}
	if !lesson.Challenges[0].Completed {
		t.Error("completed challenge not flagged")
	}
	if lesson.Challenges[1].Completed {
		t.Error("untouched challenge flagged completed")
	}
	for _, ch := range lesson.Challenges {
		if len(ch.Options) == 0 {
			t.Fatalf("challenge %s has no options", ch.ID)
		}
	}
}
