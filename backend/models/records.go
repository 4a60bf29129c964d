package models

import (
	"time"

	"gorm.io/gorm"
)

// Tables of the reference course API and the activity collector.

type CourseRecord struct {
	gorm.Model
	Slug         string `gorm:"uniqueIndex;not null"`
	Title        string `gorm:"not null"`
	Description  string
	RankRequired int `gorm:"default:1"`
	SortOrder    int
	Sections     []SectionRecord `gorm:"foreignKey:CourseID"`
}

func (CourseRecord) TableName() string { return "courses" }

type SectionRecord struct {
	gorm.Model
	CourseID  uint   `gorm:"index;not null"`
	Slug      string `gorm:"not null"`
	Title     string
	SortOrder int
	Lessons   []LessonRecord `gorm:"foreignKey:SectionID"`
}

func (SectionRecord) TableName() string { return "sections" }

type LessonRecord struct {
	gorm.Model
	CourseID     uint   `gorm:"index;not null"`
	SectionID    uint   `gorm:"index;not null"`
	Slug         string `gorm:"not null"`
	Title        string `gorm:"not null"`
	Content      string
	VideoURL     string
	SortOrder    int
	RankRequired int `gorm:"default:1"`
}

func (LessonRecord) TableName() string { return "lessons" }

type LessonCompletion struct {
	ID        uint  `gorm:"primarykey"`
	UserID    int64 `gorm:"uniqueIndex:idx_completion_user_lesson;not null"`
	LessonID  uint  `gorm:"uniqueIndex:idx_completion_user_lesson;not null"`
	CreatedAt time.Time
}

type Subscriber struct {
	TelegramID         int64 `gorm:"primaryKey;autoIncrement:false"`
	Username           *string
	FirstName          *string
	SubscriptionDate   time.Time
	UnsubscriptionDate *time.Time
	MessageCount       int
	IsActive           bool
}

func (Subscriber) TableName() string { return "channel_subscribers" }

type Message struct {
	ID          uint  `gorm:"primarykey"`
	UserID      int64 `gorm:"index:idx_messages_date_user_id,priority:2"`
	MessageID   int
	MessageDate time.Time `gorm:"index:idx_messages_date_user_id,priority:1"`
	Points      int
}

// AllRecords lists every table for AutoMigrate and test teardown.
func AllRecords() []interface{} {
	return []interface{}{
		&CourseRecord{},
		&SectionRecord{},
		&LessonRecord{},
		&LessonCompletion{},
		&Subscriber{},
		&Message{},
	}
}
