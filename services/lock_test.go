package services

import (
	"testing"

	"github.com/lingoleap-app/lingo_api/model"
)

// makeUnits builds two units of two lessons, one challenge per lesson except
// the first which has two. Challenge ids are positional: u0l0a, u0l0b, u0l1,
// u1l0, u1l1.
func makeUnits() []model.Unit {
	lesson := func(id string, challengeIDs ...string) model.Lesson {
		l := model.Lesson{ID: id}
		for _, cid := range challengeIDs {
			l.Challenges = append(l.Challenges, model.Challenge{ID: cid})
		}
		return l
	}

	return []model.Unit{
		{ID: "u0", Lessons: []model.Lesson{
			lesson("u0l0", "u0l0a", "u0l0b"),
			lesson("u0l1", "u0l1"),
		}},
		{ID: "u1", Lessons: []model.Lesson{
			lesson("u1l0", "u1l0"),
			lesson("u1l1", "u1l1"),
		}},
	}
}

func doneSet(ids ...string) map[string]bool {
	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done
}

func TestIsLessonComplete(t *testing.T) {
	units := makeUnits()

	if IsLessonComplete(&units[0].Lessons[0], doneSet()) {
		t.Error("lesson with no completions reported complete")
	}
	if IsLessonComplete(&units[0].Lessons[0], doneSet("u0l0a")) {
		t.Error("partially completed lesson reported complete")
	}
	if !IsLessonComplete(&units[0].Lessons[0], doneSet("u0l0a", "u0l0b")) {
		t.Error("fully completed lesson reported incomplete")
	}

	empty := model.Lesson{ID: "empty"}
	if IsLessonComplete(&empty, doneSet()) {
		t.Error("lesson without challenges must never be complete")
	}
}

func TestIsLessonUnlocked(t *testing.T) {
	units := makeUnits()

	tests := []struct {
		name               string
		done               map[string]bool
		unitIdx, lessonIdx int
		want               bool
	}{
		{"first lesson always open", doneSet(), 0, 0, true},
		{"second lesson gated on first", doneSet(), 0, 1, false},
		{"second lesson opens after first", doneSet("u0l0a", "u0l0b"), 0, 1, true},
		{"completed lesson stays open", doneSet("u0l1"), 0, 1, true},
		{"next unit closed without progress", doneSet(), 1, 0, false},
		// Lesson-level rule: ANY completed lesson in the previous unit opens
		// the next unit's first lesson, full completion not required.
		{"next unit opens on any previous progress", doneSet("u0l0a", "u0l0b"), 1, 0, true},
		{"second lesson of next unit still gated", doneSet("u0l0a", "u0l0b"), 1, 1, false},
		{"out of range unit", doneSet(), 2, 0, false},
		{"out of range lesson", doneSet(), 0, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLessonUnlocked(units, tt.done, tt.unitIdx, tt.lessonIdx); got != tt.want {
				t.Errorf("IsLessonUnlocked(%d, %d) = %v, want %v", tt.unitIdx, tt.lessonIdx, got, tt.want)
			}
		})
	}
}

func TestIsUnitUnlocked(t *testing.T) {
	units := makeUnits()

	if !IsUnitUnlocked(units, doneSet(), 0) {
		t.Error("first unit must be open")
	}

	// Unit-level rule is stricter than the lesson-level one: partial progress
	// in unit 0 is not enough.
	partial := doneSet("u0l0a", "u0l0b")
	if IsUnitUnlocked(units, partial, 1) {
		t.Error("unit opened on partial predecessor")
	}
	if !IsLessonUnlocked(units, partial, 1, 0) {
		t.Error("first lesson of next unit should open on the same progress")
	}

	full := doneSet("u0l0a", "u0l0b", "u0l1")
	if !IsUnitUnlocked(units, full, 1) {
		t.Error("unit closed despite complete predecessor")
	}

	if IsUnitUnlocked(units, full, 2) {
		t.Error("out of range unit reported unlocked")
	}
}

func TestChallengeIDsOf(t *testing.T) {
	ids := ChallengeIDsOf(makeUnits())
	want := []string{"u0l0a", "u0l0b", "u0l1", "u1l0", "u1l1"}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids, want %d", len(ids), len(want))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], id)
		}
	}
}
