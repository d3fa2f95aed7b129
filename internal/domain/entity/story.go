// Package entity 定义领域实体
package entity

import (
	"time"
)

// Story 已发布故事，仅由发布物化器在审核通过时创建
type Story struct {
	ID                 string            `json:"id" gorm:"type:uuid;primaryKey"`
	Title              string            `json:"title" gorm:"type:varchar(255);not null"`
	Author             string            `json:"author" gorm:"type:varchar(255)"`
	Excerpt            string            `json:"excerpt" gorm:"type:text"`
	Description        string            `json:"description" gorm:"type:text"`
	Category           StoryCategory     `json:"category" gorm:"type:varchar(64);index;not null"`
	AgeGroup           AgeGroup          `json:"age_group" gorm:"type:varchar(16);index;not null"`
	TherapeuticGoals   []TherapeuticGoal `json:"therapeutic_goals" gorm:"type:jsonb;serializer:json"`
	SourceGenerationID string            `json:"source_generation_id" gorm:"type:uuid;index;not null"`
	CreatedBy          string            `json:"created_by" gorm:"type:varchar(64)"`
	PublishedAt        time.Time         `json:"published_at"`
	CreatedAt          time.Time         `json:"created_at" gorm:"autoCreateTime"`

	Chapters []*StoryChapter `json:"chapters,omitempty" gorm:"-"`
}

// TableName 指定表名
func (Story) TableName() string {
	return "stories"
}

// StoryChapter 已发布章节，SeqNum 在故事内唯一且从 1 连续
type StoryChapter struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	StoryID   string    `json:"story_id" gorm:"type:uuid;not null;uniqueIndex:idx_story_chapter_seq"`
	SeqNum    int       `json:"seq_num" gorm:"not null;uniqueIndex:idx_story_chapter_seq"`
	Title     string    `json:"title" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Sections []*StorySection `json:"sections,omitempty" gorm:"-"`
}

// TableName 指定表名
func (StoryChapter) TableName() string {
	return "story_chapters"
}

// StorySection 已发布小节，SeqNum 在章节内唯一且从 1 连续
type StorySection struct {
	ID        string      `json:"id" gorm:"type:uuid;primaryKey"`
	ChapterID string      `json:"chapter_id" gorm:"type:uuid;not null;uniqueIndex:idx_chapter_section_seq"`
	SeqNum    int         `json:"seq_num" gorm:"not null;uniqueIndex:idx_chapter_section_seq"`
	Kind      SectionKind `json:"kind" gorm:"type:varchar(16);not null"`
	Body      string      `json:"body" gorm:"type:text"`
	CreatedAt time.Time   `json:"created_at" gorm:"autoCreateTime"`

	Question *StoryQuestion `json:"question,omitempty" gorm:"-"`
}

// TableName 指定表名
func (StorySection) TableName() string {
	return "story_sections"
}

// StoryQuestion 问题小节携带的唯一问题
type StoryQuestion struct {
	ID                 string       `json:"id" gorm:"type:uuid;primaryKey"`
	SectionID          string       `json:"section_id" gorm:"type:uuid;not null;uniqueIndex"`
	Prompt             string       `json:"prompt" gorm:"type:text;not null"`
	Kind               QuestionKind `json:"kind" gorm:"type:varchar(16);not null"`
	TherapeuticPurpose string       `json:"therapeutic_purpose" gorm:"type:text"`
	CreatedAt          time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (StoryQuestion) TableName() string {
	return "story_questions"
}
