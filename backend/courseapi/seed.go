package courseapi

import (
	"errors"

	"miniapp/backend/models"

	"gorm.io/gorm"
)

// DemoCourseSlug is the id of the course Seed creates.
const DemoCourseSlug = "getting-started"

// Seed creates a demo course unless it already exists. It reports whether
// anything was written.
func Seed(db *gorm.DB) (bool, error) {
	err := db.Where("slug = ?", DemoCourseSlug).First(&models.CourseRecord{}).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	course := models.CourseRecord{
		Slug:         DemoCourseSlug,
		Title:        "Первые шаги",
		Description:  "Как устроено сообщество и как зарабатывать очки",
		RankRequired: 1,
		Sections: []models.SectionRecord{
			{
				Slug:      "basics",
				Title:     "Основы",
				SortOrder: 1,
				Lessons: []models.LessonRecord{
					{
						Slug:      "welcome",
						Title:     "Добро пожаловать",
						SortOrder: 1,
						Content:   "# Добро пожаловать\n\nЭто приложение открывается прямо из Telegram.\n",
					},
					{
						Slug:      "points",
						Title:     "Очки и ранги",
						SortOrder: 2,
						Content: "# Очки и ранги\n\n" +
							"Каждое сообщение в группе приносит **2 очка**.\n\n" +
							"| Ранг | Очки |\n|---|---|\n" +
							"| Новичок | 0 |\n| Активный участник | 51 |\n| Ветеран | 201 |\n| Легенда | 501 |\n",
					},
				},
			},
			{
				Slug:      "advanced",
				Title:     "Для опытных",
				SortOrder: 2,
				Lessons: []models.LessonRecord{
					{
						Slug:         "bots",
						Title:        "Свой бот",
						SortOrder:    1,
						RankRequired: 2,
						VideoURL:     "https://www.youtube.com/embed/dQw4w9WgXcQ",
						Content:      "# Свой бот\n\n```go\nbot, err := tgbotapi.NewBotAPI(token)\n```\n",
					},
				},
			},
		},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sections").Create(&course).Error; err != nil {
			return err
		}
		for i := range course.Sections {
			section := &course.Sections[i]
			section.CourseID = course.ID
			if err := tx.Omit("Lessons").Create(section).Error; err != nil {
				return err
			}
			for j := range section.Lessons {
				lesson := &section.Lessons[j]
				lesson.CourseID = course.ID
				lesson.SectionID = section.ID
				if err := tx.Create(lesson).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	return err == nil, err
}
