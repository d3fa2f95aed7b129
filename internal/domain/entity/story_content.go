// Package entity 定义领域实体
package entity

// SectionKind 小节类型
type SectionKind string

const (
	SectionKindText     SectionKind = "text"
	SectionKindQuestion SectionKind = "question"
)

// QuestionKind 问题类型
type QuestionKind string

const (
	QuestionKindReflection QuestionKind = "reflection"
	QuestionKindDiscussion QuestionKind = "discussion"
	QuestionKindActivity   QuestionKind = "activity"
)

// StoryContent 经过结构校验的生成内容
// 只能由内容校验器构造，未经校验的动态数据不会越过该边界
type StoryContent struct {
	Title       string           `json:"title"`
	Author      string           `json:"author"`
	Excerpt     string           `json:"excerpt"`
	Description string           `json:"description"`
	Chapters    []ContentChapter `json:"chapters"`
}

// ContentChapter 生成内容中的章节，Number 保留生成结果中的编号（允许不连续）
type ContentChapter struct {
	Number   int              `json:"chapter_number"`
	Title    string           `json:"title,omitempty"`
	Sections []ContentSection `json:"sections"`
}

// ContentSection 小节：Kind 为 question 时 Question 非空，否则为空
type ContentSection struct {
	Number   int              `json:"section_number"`
	Kind     SectionKind      `json:"kind"`
	Body     string           `json:"body,omitempty"`
	Question *ContentQuestion `json:"question,omitempty"`
}

// ContentQuestion 嵌入小节的引导问题
type ContentQuestion struct {
	Prompt             string       `json:"prompt"`
	Kind               QuestionKind `json:"kind"`
	TherapeuticPurpose string       `json:"therapeutic_purpose"`
}

// NewTextSection 创建正文小节
func NewTextSection(number int, body string) ContentSection {
	return ContentSection{Number: number, Kind: SectionKindText, Body: body}
}

// NewQuestionSection 创建问题小节
func NewQuestionSection(number int, body string, q ContentQuestion) ContentSection {
	return ContentSection{Number: number, Kind: SectionKindQuestion, Body: body, Question: &q}
}

// IsQuestion 是否为问题小节
func (s ContentSection) IsQuestion() bool {
	return s.Kind == SectionKindQuestion && s.Question != nil
}

// ChapterCount 章节数
func (c *StoryContent) ChapterCount() int {
	if c == nil {
		return 0
	}
	return len(c.Chapters)
}

// QuestionCount 问题总数
func (c *StoryContent) QuestionCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, ch := range c.Chapters {
		for _, s := range ch.Sections {
			if s.IsQuestion() {
				n++
			}
		}
	}
	return n
}
