package dto

import (
	"time"

	"therapeutic-story-api/internal/domain/entity"
)

// StoryResponse 已发布故事树
type StoryResponse struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Author             string             `json:"author,omitempty"`
	Excerpt            string             `json:"excerpt,omitempty"`
	Description        string             `json:"description,omitempty"`
	Category           string             `json:"category"`
	AgeGroup           string             `json:"age_group"`
	TherapeuticGoals   []string           `json:"therapeutic_goals"`
	SourceGenerationID string             `json:"source_generation_id"`
	PublishedAt        time.Time          `json:"published_at"`
	Chapters           []*ChapterResponse `json:"chapters"`
}

// ChapterResponse 已发布章节
type ChapterResponse struct {
	SeqNum   int                `json:"seq_num"`
	Title    string             `json:"title,omitempty"`
	Sections []*SectionResponse `json:"sections"`
}

// SectionResponse 已发布小节
type SectionResponse struct {
	SeqNum   int               `json:"seq_num"`
	Kind     string            `json:"kind"`
	Body     string            `json:"body,omitempty"`
	Question *QuestionResponse `json:"question,omitempty"`
}

// QuestionResponse 小节问题
type QuestionResponse struct {
	Prompt             string `json:"prompt"`
	Kind               string `json:"kind"`
	TherapeuticPurpose string `json:"therapeutic_purpose"`
}

// ToStoryResponse 转换故事树
func ToStoryResponse(s *entity.Story) *StoryResponse {
	if s == nil {
		return nil
	}
	goals := make([]string, 0, len(s.TherapeuticGoals))
	for _, g := range s.TherapeuticGoals {
		goals = append(goals, string(g))
	}
	resp := &StoryResponse{
		ID:                 s.ID,
		Title:              s.Title,
		Author:             s.Author,
		Excerpt:            s.Excerpt,
		Description:        s.Description,
		Category:           string(s.Category),
		AgeGroup:           string(s.AgeGroup),
		TherapeuticGoals:   goals,
		SourceGenerationID: s.SourceGenerationID,
		PublishedAt:        s.PublishedAt,
		Chapters:           make([]*ChapterResponse, 0, len(s.Chapters)),
	}
	for _, ch := range s.Chapters {
		cr := &ChapterResponse{
			SeqNum:   ch.SeqNum,
			Title:    ch.Title,
			Sections: make([]*SectionResponse, 0, len(ch.Sections)),
		}
		for _, sec := range ch.Sections {
			sr := &SectionResponse{
				SeqNum: sec.SeqNum,
				Kind:   string(sec.Kind),
				Body:   sec.Body,
			}
			if q := sec.Question; q != nil {
				sr.Question = &QuestionResponse{
					Prompt:             q.Prompt,
					Kind:               string(q.Kind),
					TherapeuticPurpose: q.TherapeuticPurpose,
				}
			}
			cr.Sections = append(cr.Sections, sr)
		}
		resp.Chapters = append(resp.Chapters, cr)
	}
	return resp
}
