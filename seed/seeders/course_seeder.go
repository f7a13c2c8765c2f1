package seeders

import (
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingoleap-app/lingo_api/model"
	"github.com/lingoleap-app/lingo_api/shared"
)

// CourseSeeder loads a starter catalog so a fresh install has something to
// play through.
type CourseSeeder struct {
	db *gorm.DB
}

func NewCourseSeeder(db *gorm.DB) *CourseSeeder {
	return &CourseSeeder{db: db}
}

type seedOption struct {
	text    string
	correct bool
}

type seedChallenge struct {
	challengeType string
	question      string
	options       []seedOption
}

type seedLesson struct {
	title      string
	challenges []seedChallenge
}

type seedUnit struct {
	title       string
	description string
	lessons     []seedLesson
}

type seedCourse struct {
	title    string
	imageSrc string
	units    []seedUnit
}

func (s *CourseSeeder) SeedCourses() error {
	var count int64
	if err := s.db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Courses already exist, skipping course seeding")
		return nil
	}

	for _, sc := range starterCourses() {
		if err := s.createCourse(sc); err != nil {
			return err
		}
		log.Printf("Created course: %s", sc.title)
	}
	return nil
}

func (s *CourseSeeder) createCourse(sc seedCourse) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		course := model.Course{
			ID:       newID(),
			Title:    sc.title,
			ImageSrc: sc.imageSrc,
			IsActive: true,
		}
		if err := tx.Create(&course).Error; err != nil {
			return err
		}

		for ui, su := range sc.units {
			unit := model.Unit{
				ID:          newID(),
				CourseID:    course.ID,
				Title:       su.title,
				Description: su.description,
				Order:       ui + 1,
			}
			if err := tx.Create(&unit).Error; err != nil {
				return err
			}

			for li, sl := range su.lessons {
				lesson := model.Lesson{
					ID:     newID(),
					UnitID: unit.ID,
					Title:  sl.title,
					Order:  li + 1,
				}
				if err := tx.Create(&lesson).Error; err != nil {
					return err
				}

				for ci, ch := range sl.challenges {
					challenge := model.Challenge{
						ID:       newID(),
						LessonID: lesson.ID,
						Type:     ch.challengeType,
						Question: ch.question,
						Order:    ci + 1,
					}
					if err := tx.Create(&challenge).Error; err != nil {
						return err
					}

					for _, opt := range ch.options {
						option := model.ChallengeOption{
							ID:          newID(),
							ChallengeID: challenge.ID,
							Text:        opt.text,
							Correct:     opt.correct,
						}
						if err := tx.Create(&option).Error; err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	})
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func starterCourses() []seedCourse {
	return []seedCourse{
		{
			title:    "Spanish",
			imageSrc: "/flags/es.svg",
			units: []seedUnit{
				{
					title:       "Unit 1",
					description: "Learn the basics of Spanish",
					lessons: []seedLesson{
						{
							title: "Nouns",
							challenges: []seedChallenge{
								{
									challengeType: shared.ChallengeTypeSelect,
									question:      `Which one of these is "the man"?`,
									options: []seedOption{
										{text: "el hombre", correct: true},
										{text: "la mujer"},
										{text: "el robot"},
									},
								},
								{
									challengeType: shared.ChallengeTypeAssist,
									question:      `"the man"`,
									options: []seedOption{
										{text: "el hombre", correct: true},
										{text: "la mujer"},
										{text: "el robot"},
									},
								},
							},
						},
						{
							title: "Verbs",
							challenges: []seedChallenge{
								{
									challengeType: shared.ChallengeTypeSelect,
									question:      `Which one of these is "to run"?`,
									options: []seedOption{
										{text: "correr", correct: true},
										{text: "comer"},
										{text: "beber"},
									},
								},
							},
						},
					},
				},
				{
					title:       "Unit 2",
					description: "Phrases and greetings",
					lessons: []seedLesson{
						{
							title: "Greetings",
							challenges: []seedChallenge{
								{
									challengeType: shared.ChallengeTypeSelect,
									question:      `Which one of these is "good morning"?`,
									options: []seedOption{
										{text: "buenos dias", correct: true},
										{text: "buenas noches"},
										{text: "hasta luego"},
									},
								},
							},
						},
					},
				},
			},
		},
		{
			title:    "French",
			imageSrc: "/flags/fr.svg",
			units: []seedUnit{
				{
					title:       "Unit 1",
					description: "Learn the basics of French",
					lessons: []seedLesson{
						{
							title: "Nouns",
							challenges: []seedChallenge{
								{
									challengeType: shared.ChallengeTypeSelect,
									question:      `Which one of these is "the man"?`,
									options: []seedOption{
										{text: "l'homme", correct: true},
										{text: "la femme"},
										{text: "le robot"},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}
