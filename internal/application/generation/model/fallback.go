package model

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"therapeutic-story-api/internal/application/generation/prompt"
	"therapeutic-story-api/internal/domain/entity"
)

// FallbackName 本地生成器名称
const FallbackName = "fallback"

const defaultFragmentRunes = 48

// Fallback 确定性的本地故事生成器
// 对任意合法请求都生成满足结构约定的输出，且从不返回错误
type Fallback struct {
	fragmentRunes int
}

// NewFallback 创建本地生成器，fragmentRunes 为流式分片大小
func NewFallback(fragmentRunes int) *Fallback {
	if fragmentRunes <= 0 {
		fragmentRunes = defaultFragmentRunes
	}
	return &Fallback{fragmentRunes: fragmentRunes}
}

// Name 实现 Client
func (f *Fallback) Name() string { return FallbackName }

// GenerateOnce 实现 Client
func (f *Fallback) GenerateOnce(_ context.Context, p prompt.Prompts) (string, error) {
	return f.compose(p), nil
}

// GenerateStream 实现 Client，分片拼接后与 GenerateOnce 完全一致
func (f *Fallback) GenerateStream(_ context.Context, p prompt.Prompts) (FragmentReader, error) {
	return NewSliceReader(splitRunes(f.compose(p), f.fragmentRunes)), nil
}

type fallbackStory struct {
	Title       string            `json:"title"`
	Author      string            `json:"author"`
	Excerpt     string            `json:"excerpt"`
	Description string            `json:"description"`
	Chapters    []fallbackChapter `json:"chapters"`
}

type fallbackChapter struct {
	ChapterNumber int               `json:"chapterNumber"`
	Title         string            `json:"title"`
	Sections      []fallbackSection `json:"sections"`
}

type fallbackSection struct {
	SectionNumber int               `json:"sectionNumber"`
	Type          string            `json:"type"`
	Content       string            `json:"content"`
	Question      *fallbackQuestion `json:"question,omitempty"`
}

type fallbackQuestion struct {
	Question           string `json:"question"`
	Type               string `json:"type"`
	TherapeuticPurpose string `json:"therapeuticPurpose"`
}

type theme struct {
	motif     string
	setting   string
	challenge string
	strategy  string
	companion string
}

var themes = map[entity.StoryCategory]theme{
	entity.CategoryAnxietyManagement: {
		motif: "Butterfly Breath", setting: "a busy schoolyard",
		challenge: "the worried, fluttery feeling before a big day", strategy: "slow butterfly breaths, in for four and out for four",
		companion: "a calm old owl named Hoot",
	},
	entity.CategoryEmotionalRegulation: {
		motif: "Volcano Inside", setting: "a noisy kitchen at dinnertime",
		challenge: "a hot, bubbling anger that wants to burst out", strategy: "pausing, counting to ten and naming the feeling out loud",
		companion: "a patient tortoise named Pebble",
	},
	entity.CategorySocialSkills: {
		motif: "Friendship Bridge", setting: "a new playground",
		challenge: "not knowing how to join a game", strategy: "asking a kind question and listening to the answer",
		companion: "a chatty parrot named Pip",
	},
	entity.CategorySelfEsteem: {
		motif: "Starlight Mirror", setting: "a small town library",
		challenge: "a quiet voice saying 'you are not good enough'", strategy: "writing down three things done well each day",
		companion: "a gentle fox named Ember",
	},
	entity.CategoryGriefAndLoss: {
		motif: "Memory Garden", setting: "a garden behind grandma's house",
		challenge: "missing someone who is no longer there", strategy: "sharing a favourite memory and planting something in their honour",
		companion: "a soft-spoken rabbit named Clover",
	},
	entity.CategoryFamilyChanges: {
		motif: "Two Front Doors", setting: "two homes on two different streets",
		challenge: "everything at home suddenly feeling different", strategy: "keeping a comfort object and talking about the changes",
		companion: "a steady bear named Maple",
	},
	entity.CategoryBullying: {
		motif: "Brave Voice", setting: "the hallway outside the classroom",
		challenge: "unkind words from other children", strategy: "standing tall, using a clear voice and telling a trusted adult",
		companion: "a loyal dog named Scout",
	},
	entity.CategoryMindfulness: {
		motif: "Quiet Pond", setting: "a pond at the edge of the woods",
		challenge: "a mind that races from one thought to the next", strategy: "noticing five things you can see, hear and feel",
		companion: "a still heron named Willow",
	},
}

var heroNames = []string{"Milo", "Ava", "Theo", "Luna", "Sami", "Nora", "Kai", "Iris"}

var chapterBeats = []string{
	"A Brand New Day",
	"The Tricky Moment",
	"A Helpful Friend",
	"Trying Something New",
	"Feeling Stronger",
	"Sharing What I Learned",
}

var questionKinds = []string{"Reflection", "Discussion", "Activity"}

func (f *Fallback) compose(p prompt.Prompts) string {
	req := p.Request
	shape := p.Shape.Normalize()

	th, ok := themes[req.Category]
	if !ok {
		th = themes[entity.CategoryMindfulness]
	}
	hero := heroNames[pick(string(req.Category)+"|"+string(req.AgeGroup), len(heroNames))]
	goals := req.TherapeuticGoals
	if len(goals) == 0 {
		goals = []entity.TherapeuticGoal{entity.GoalBuildResilience}
	}
	young := req.AgeGroup == entity.AgeGroup3To5 || req.AgeGroup == entity.AgeGroup6To7

	story := fallbackStory{
		Title:  fmt.Sprintf("%s and the %s", hero, th.motif),
		Author: "Story Companion",
		Excerpt: fmt.Sprintf("%s faces %s and discovers %s.",
			hero, th.challenge, th.strategy),
		Description: fmt.Sprintf("A story about %s for %s, written to %s.",
			req.Category.Label(), req.AgeGroup.Label(), prompt.GoalList(goals)),
		Chapters: make([]fallbackChapter, 0, shape.Chapters),
	}

	firstQuestion := shape.SectionsPerChapter - shape.QuestionsPerChapter
	for i := 0; i < shape.Chapters; i++ {
		ch := fallbackChapter{
			ChapterNumber: i + 1,
			Title:         chapterBeats[i%len(chapterBeats)],
			Sections:      make([]fallbackSection, 0, shape.SectionsPerChapter),
		}
		for j := 0; j < shape.SectionsPerChapter; j++ {
			goal := goals[(i+j)%len(goals)]
			sec := fallbackSection{SectionNumber: j + 1}
			if j < firstQuestion {
				sec.Type = "Text"
				sec.Content = narrate(hero, th, goal, i, j, young)
			} else {
				k := i*shape.QuestionsPerChapter + (j - firstQuestion)
				kind := questionKinds[k%len(questionKinds)]
				sec.Type = "Question"
				sec.Content = fmt.Sprintf("Let's pause and think about %s together.", hero)
				sec.Question = &fallbackQuestion{
					Question:           ask(kind, hero, th),
					Type:               kind,
					TherapeuticPurpose: "Helps the reader " + goal.Label() + ".",
				}
			}
			ch.Sections = append(ch.Sections, sec)
		}
		story.Chapters = append(story.Chapters, ch)
	}

	// 结构体字段与取值均确定，序列化不会失败
	data, _ := json.MarshalIndent(story, "", "  ")
	return string(data)
}

func narrate(hero string, th theme, goal entity.TherapeuticGoal, chapter, section int, young bool) string {
	var lines []string
	switch chapter % len(chapterBeats) {
	case 0:
		lines = append(lines, fmt.Sprintf("%s woke up in %s, ready for the day.", hero, th.setting))
	case 1:
		lines = append(lines, fmt.Sprintf("Then came %s, and %s did not know what to do.", th.challenge, hero))
	case 2:
		lines = append(lines, fmt.Sprintf("That is when %s met %s.", hero, th.companion))
	case 3:
		lines = append(lines, fmt.Sprintf("%s decided to try %s.", hero, th.strategy))
	case 4:
		lines = append(lines, fmt.Sprintf("Each time %s practised, it felt a little easier.", hero))
	default:
		lines = append(lines, fmt.Sprintf("%s told a friend all about %s.", hero, th.strategy))
	}
	if section%2 == 1 {
		lines = append(lines, fmt.Sprintf("%s noticed how the feeling changed, bit by bit.", hero))
	}
	if !young {
		lines = append(lines, fmt.Sprintf("Step by step, %s was learning to %s, even when it was hard.", hero, goal.Label()))
	} else {
		lines = append(lines, fmt.Sprintf("%s smiled. It is okay to learn slowly.", hero))
	}
	return strings.Join(lines, " ")
}

func ask(kind, hero string, th theme) string {
	switch kind {
	case "Reflection":
		return fmt.Sprintf("How do you think %s felt during %s? Have you ever felt that way?", hero, th.challenge)
	case "Discussion":
		return fmt.Sprintf("What could %s say to a grown-up or a friend when things feel hard?", hero)
	default:
		return fmt.Sprintf("Let's practise together: try %s, just like %s did.", th.strategy, hero)
	}
}

func pick(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

func splitRunes(s string, size int) []string {
	runes := []rune(s)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
