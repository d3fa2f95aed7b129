// Package validator 将模型输出解析为结构化故事内容
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"therapeutic-story-api/internal/domain/entity"
	apperrors "therapeutic-story-api/pkg/errors"
	"therapeutic-story-api/pkg/metrics"
)

// Validate 解析并校验累积的模型输出
// 任何不满足结构约定的情况都返回指向首个问题字段的 ValidationError
func Validate(buffer string) (*entity.StoryContent, error) {
	content, err := validate(buffer)
	if err != nil {
		metrics.ValidationTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	metrics.ValidationTotal.WithLabelValues("accepted").Inc()
	return content, nil
}

func validate(buffer string) (*entity.StoryContent, error) {
	jsonText := ExtractJSONObject(buffer)
	if strings.TrimSpace(jsonText) == "" {
		return nil, apperrors.Validation("content", "is empty")
	}

	dec := json.NewDecoder(strings.NewReader(jsonText))
	dec.UseNumber()
	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, apperrors.Validation("content", "is not a JSON object")
	}

	out := &entity.StoryContent{}
	var err error
	if out.Title, err = requiredString(root, "title", "title"); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		key string
		dst *string
	}{{"author", &out.Author}, {"excerpt", &out.Excerpt}, {"description", &out.Description}} {
		if *f.dst, err = presentString(root, f.key, f.key); err != nil {
			return nil, err
		}
	}

	chapters, err := requiredList(root, "chapters", "chapters")
	if err != nil {
		return nil, err
	}
	out.Chapters = make([]entity.ContentChapter, 0, len(chapters))
	for i, raw := range chapters {
		ch, err := parseChapter(raw, fmt.Sprintf("chapters[%d]", i))
		if err != nil {
			return nil, err
		}
		out.Chapters = append(out.Chapters, ch)
	}
	return out, nil
}

func parseChapter(raw any, path string) (entity.ContentChapter, error) {
	var ch entity.ContentChapter
	obj, ok := raw.(map[string]any)
	if !ok {
		return ch, apperrors.Validation(path, "must be an object")
	}

	var err error
	if ch.Number, err = positiveInt(obj, "chapterNumber", path+".chapterNumber"); err != nil {
		return ch, err
	}
	if ch.Title, err = optionalString(obj, "title", path+".title"); err != nil {
		return ch, err
	}

	sections, err := requiredList(obj, "sections", path+".sections")
	if err != nil {
		return ch, err
	}
	ch.Sections = make([]entity.ContentSection, 0, len(sections))
	for j, rawSec := range sections {
		sec, err := parseSection(rawSec, fmt.Sprintf("%s.sections[%d]", path, j))
		if err != nil {
			return ch, err
		}
		ch.Sections = append(ch.Sections, sec)
	}
	return ch, nil
}

func parseSection(raw any, path string) (entity.ContentSection, error) {
	var sec entity.ContentSection
	obj, ok := raw.(map[string]any)
	if !ok {
		return sec, apperrors.Validation(path, "must be an object")
	}

	number, err := positiveInt(obj, "sectionNumber", path+".sectionNumber")
	if err != nil {
		return sec, err
	}
	kind, err := requiredString(obj, "type", path+".type")
	if err != nil {
		return sec, err
	}
	body, err := optionalString(obj, "content", path+".content")
	if err != nil {
		return sec, err
	}

	switch strings.ToLower(kind) {
	case string(entity.SectionKindText):
		return entity.NewTextSection(number, body), nil
	case string(entity.SectionKindQuestion):
		q, err := parseQuestion(obj["question"], path+".question")
		if err != nil {
			return sec, err
		}
		return entity.NewQuestionSection(number, body, q), nil
	default:
		return sec, apperrors.Validation(path+".type", "must be one of Text, Question")
	}
}

func parseQuestion(raw any, path string) (entity.ContentQuestion, error) {
	var q entity.ContentQuestion
	if raw == nil {
		return q, apperrors.Validation(path, "is required for Question sections")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return q, apperrors.Validation(path, "must be an object")
	}

	var err error
	if q.Prompt, err = requiredString(obj, "question", path+".question"); err != nil {
		return q, err
	}
	kind, err := requiredString(obj, "type", path+".type")
	if err != nil {
		return q, err
	}
	switch k := entity.QuestionKind(strings.ToLower(kind)); k {
	case entity.QuestionKindReflection, entity.QuestionKindDiscussion, entity.QuestionKindActivity:
		q.Kind = k
	default:
		return q, apperrors.Validation(path+".type", "must be one of Reflection, Discussion, Activity")
	}
	if q.TherapeuticPurpose, err = requiredString(obj, "therapeuticPurpose", path+".therapeuticPurpose"); err != nil {
		return q, err
	}
	return q, nil
}

func requiredString(obj map[string]any, key, path string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", apperrors.Validation(path, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", apperrors.Validation(path, "must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperrors.Validation(path, "must not be empty")
	}
	return s, nil
}

// presentString 字段必须存在且为字符串，允许为空
func presentString(obj map[string]any, key, path string) (string, error) {
	if v, ok := obj[key]; !ok || v == nil {
		return "", apperrors.Validation(path, "is required")
	}
	return optionalString(obj, key, path)
}

func optionalString(obj map[string]any, key, path string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", apperrors.Validation(path, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

func requiredList(obj map[string]any, key, path string) ([]any, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, apperrors.Validation(path, "is required")
	}
	list, ok := v.([]any)
	if !ok {
		return nil, apperrors.Validation(path, "must be a list")
	}
	if len(list) == 0 {
		return nil, apperrors.Validation(path, "must not be empty")
	}
	return list, nil
}

func positiveInt(obj map[string]any, key, path string) (int, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0, apperrors.Validation(path, "is required")
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, apperrors.Validation(path, "must be a positive integer")
	}
	n, err := num.Int64()
	if err != nil || n <= 0 || n > 1<<31-1 {
		return 0, apperrors.Validation(path, "must be a positive integer")
	}
	return int(n), nil
}

// ExtractJSONObject 从模型输出中截取 JSON 对象（容忍 markdown 代码块与前后说明文字）
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	for {
		_, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return raw
			}
			return strings.TrimSpace(s)
		}
	}
}
