// services/lock.go
package services

import "github.com/lingoleap-app/lingo_api/model"

// Lock derivation is a pure read-only view over the catalog subtree and the
// completion ledger. Nothing here touches persistence; callers pass the
// ordered units of a course and the set of completed challenge ids.

// IsLessonComplete reports whether every challenge of the lesson has a
// completed ledger entry. A lesson with no challenges is never complete.
func IsLessonComplete(lesson *model.Lesson, done map[string]bool) bool {
	if len(lesson.Challenges) == 0 {
		return false
	}
	for _, ch := range lesson.Challenges {
		if !done[ch.ID] {
			return false
		}
	}
	return true
}

// IsUnitComplete is the conjunction over the unit's lessons.
func IsUnitComplete(unit *model.Unit, done map[string]bool) bool {
	for i := range unit.Lessons {
		if !IsLessonComplete(&unit.Lessons[i], done) {
			return false
		}
	}
	return true
}

// UnitHasProgress reports whether at least one lesson in the unit is complete.
func UnitHasProgress(unit *model.Unit, done map[string]bool) bool {
	for i := range unit.Lessons {
		if IsLessonComplete(&unit.Lessons[i], done) {
			return true
		}
	}
	return false
}

// IsLessonUnlocked decides whether the lesson at (unitIdx, lessonIdx) is
// playable. A lesson is unlocked iff it is the very first lesson of the
// course, it is already complete, the preceding lesson in its unit is
// complete, or it opens a unit whose predecessor has any completed lesson.
// The last rule is deliberately looser than the unit-level rule below.
func IsLessonUnlocked(units []model.Unit, done map[string]bool, unitIdx, lessonIdx int) bool {
	if unitIdx < 0 || unitIdx >= len(units) {
		return false
	}
	unit := &units[unitIdx]
	if lessonIdx < 0 || lessonIdx >= len(unit.Lessons) {
		return false
	}

	if unitIdx == 0 && lessonIdx == 0 {
		return true
	}

	if IsLessonComplete(&unit.Lessons[lessonIdx], done) {
		return true
	}

	if lessonIdx > 0 {
		return IsLessonComplete(&unit.Lessons[lessonIdx-1], done)
	}

	// First lesson of a later unit: any progress in the previous unit opens it.
	return UnitHasProgress(&units[unitIdx-1], done)
}

// IsUnitUnlocked gates unit navigation: a unit is open iff the immediately
// preceding unit is fully complete.
func IsUnitUnlocked(units []model.Unit, done map[string]bool, unitIdx int) bool {
	if unitIdx < 0 || unitIdx >= len(units) {
		return false
	}
	if unitIdx == 0 {
		return true
	}
	return IsUnitComplete(&units[unitIdx-1], done)
}

// ChallengeIDsOf flattens the subtree into the challenge ids the ledger
// lookup should be restricted to.
func ChallengeIDsOf(units []model.Unit) []string {
	var ids []string
	for ui := range units {
		for li := range units[ui].Lessons {
			for _, ch := range units[ui].Lessons[li].Challenges {
				ids = append(ids, ch.ID)
			}
		}
	}
	return ids
}
