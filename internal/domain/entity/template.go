// Package entity 定义领域实体
package entity

import (
	"time"
)

// GenerationTemplate 生成模板（本服务只读）
type GenerationTemplate struct {
	ID                        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name                      string    `json:"name" gorm:"type:varchar(128);uniqueIndex;not null"`
	SystemPrompt              string    `json:"system_prompt" gorm:"type:text"`
	UserPromptTemplate        string    `json:"user_prompt_template" gorm:"type:text"`
	TargetChapters            int       `json:"target_chapters" gorm:"default:0"`
	TargetSectionsPerChapter  int       `json:"target_sections_per_chapter" gorm:"default:0"`
	TargetQuestionsPerChapter int       `json:"target_questions_per_chapter" gorm:"default:0"`
	Active                    bool      `json:"active" gorm:"not null"`
	CreatedAt                 time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt                 time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (GenerationTemplate) TableName() string {
	return "generation_templates"
}
