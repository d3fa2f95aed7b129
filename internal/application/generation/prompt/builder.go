// Package prompt 构建故事生成提示词
package prompt

import (
	"context"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"therapeutic-story-api/internal/domain/entity"
)

const (
	maxChapters           = 12
	maxSectionsPerChapter = 10
)

// DefaultSystemPrompt 未配置模板时的默认人设
const DefaultSystemPrompt = `You are a children's therapeutic storyteller working alongside licensed child therapists.
You write warm, age-appropriate stories that model healthy coping strategies without lecturing.
Characters name their feelings, try a concrete strategy, and experience a believable, hopeful outcome.
Never include frightening imagery, self-harm, medical advice or real-world brands.`

// OutputContract 结构化输出约定，格式化之后追加到系统消息末尾（含字面量花括号，不参与占位符替换）
const OutputContract = `Respond with a single JSON object and nothing else. No markdown fences, no commentary.
The object must have exactly this shape:
{
  "title": string (non-empty),
  "author": string,
  "excerpt": string (one or two sentences),
  "description": string,
  "chapters": [
    {
      "chapterNumber": positive integer,
      "title": string,
      "sections": [
        {
          "sectionNumber": positive integer,
          "type": "Text" | "Question",
          "content": string,
          "question": {
            "question": string (non-empty),
            "type": "Reflection" | "Discussion" | "Activity",
            "therapeuticPurpose": string (non-empty)
          }
        }
      ]
    }
  ]
}
Rules: "chapters" and every "sections" list must be non-empty and in reading order.
A section of type "Question" must carry the "question" object; a "Text" section must omit it.`

// DefaultUserPromptTemplate 默认用户提示词骨架
const DefaultUserPromptTemplate = `Write a therapeutic story for {age_group_label} (age group {age_group}).
Theme: {category_label} ({category}).
Therapeutic goals: {therapeutic_goals}.
Structure: {target_chapters} chapters, {target_sections_per_chapter} sections per chapter, of which {target_questions_per_chapter} per chapter are Question sections placed after the story text they refer to.
Additional guidance from the therapist: {custom_prompt}.`

// Shape 目标结构
type Shape struct {
	Chapters            int `json:"chapters"`
	SectionsPerChapter  int `json:"sections_per_chapter"`
	QuestionsPerChapter int `json:"questions_per_chapter"`
}

// Normalize 将结构限定在合法范围：至少 1 章 1 节，问题数不超过小节数
func (s Shape) Normalize() Shape {
	s.Chapters = clamp(s.Chapters, 1, maxChapters)
	s.SectionsPerChapter = clamp(s.SectionsPerChapter, 1, maxSectionsPerChapter)
	s.QuestionsPerChapter = clamp(s.QuestionsPerChapter, 0, s.SectionsPerChapter)
	return s
}

// Prompts 构建结果
// Messages 为发送给模型的消息；Request 与 Shape 随提示词一起传递，供本地生成器使用
type Prompts struct {
	Messages []*schema.Message
	System   string
	User     string
	Request  entity.GenerationRequest
	Shape    Shape
}

// Builder 提示词构建器，无状态且确定
type Builder struct {
	defaults   Shape
	defaultTpl einoprompt.ChatTemplate
}

// NewBuilder 创建构建器
func NewBuilder(defaults Shape) *Builder {
	return &Builder{
		defaults:   defaults.Normalize(),
		defaultTpl: chatTemplate(DefaultSystemPrompt, DefaultUserPromptTemplate),
	}
}

// Build 根据请求与可选模板构建系统/用户提示词
// 模板中引用未知占位符或花括号不成对时返回错误
func (b *Builder) Build(ctx context.Context, req entity.GenerationRequest, tpl *entity.GenerationTemplate) (Prompts, error) {
	shape := b.shapeFor(tpl)

	chat := b.defaultTpl
	if tpl != nil {
		system, user := DefaultSystemPrompt, DefaultUserPromptTemplate
		if s := strings.TrimSpace(tpl.SystemPrompt); s != "" {
			system = s
		}
		if u := strings.TrimSpace(tpl.UserPromptTemplate); u != "" {
			user = u
		}
		chat = chatTemplate(system, user)
	}

	msgs, err := chat.Format(ctx, variables(req, shape))
	if err != nil {
		return Prompts{}, fmt.Errorf("format prompt template: %w", err)
	}
	msgs[0].Content += "\n\n" + OutputContract

	return Prompts{
		Messages: msgs,
		System:   msgs[0].Content,
		User:     msgs[1].Content,
		Request:  req,
		Shape:    shape,
	}, nil
}

func chatTemplate(system, user string) einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
}

func (b *Builder) shapeFor(tpl *entity.GenerationTemplate) Shape {
	shape := b.defaults
	if tpl == nil {
		return shape
	}
	if tpl.TargetChapters > 0 {
		shape.Chapters = tpl.TargetChapters
	}
	if tpl.TargetSectionsPerChapter > 0 {
		shape.SectionsPerChapter = tpl.TargetSectionsPerChapter
	}
	if tpl.TargetQuestionsPerChapter > 0 {
		shape.QuestionsPerChapter = tpl.TargetQuestionsPerChapter
	}
	return shape.Normalize()
}

// variables 模板占位符取值
func variables(req entity.GenerationRequest, shape Shape) map[string]any {
	custom := strings.TrimSpace(req.CustomPrompt)
	if custom == "" {
		custom = "none"
	}
	return map[string]any{
		"age_group":                    string(req.AgeGroup),
		"age_group_label":              req.AgeGroup.Label(),
		"category":                     string(req.Category),
		"category_label":               req.Category.Label(),
		"therapeutic_goals":            GoalList(req.TherapeuticGoals),
		"custom_prompt":                custom,
		"target_chapters":              shape.Chapters,
		"target_sections_per_chapter":  shape.SectionsPerChapter,
		"target_questions_per_chapter": shape.QuestionsPerChapter,
	}
}

// GoalList 将治疗目标渲染为可读列表
func GoalList(goals []entity.TherapeuticGoal) string {
	if len(goals) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(goals))
	for _, g := range goals {
		parts = append(parts, g.Label())
	}
	return strings.Join(parts, ", ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
