package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"therapeutic-story-api/internal/application/generation/prompt"
	"therapeutic-story-api/internal/config"
	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/wire"
)

// defaultTemplates 默认生成模板，ID 固定以便重复执行时失效对应缓存
func defaultTemplates() []*entity.GenerationTemplate {
	return []*entity.GenerationTemplate{
		{
			ID:                        "7b1f8f3e-2c1a-4c4e-9a55-0c6f1d7e0a01",
			Name:                      "standard",
			SystemPrompt:              prompt.DefaultSystemPrompt,
			UserPromptTemplate:        prompt.DefaultUserPromptTemplate,
			TargetChapters:            3,
			TargetSectionsPerChapter:  3,
			TargetQuestionsPerChapter: 1,
			Active:                    true,
		},
		{
			ID:           "7b1f8f3e-2c1a-4c4e-9a55-0c6f1d7e0a02",
			Name:         "bedtime-short",
			SystemPrompt: prompt.DefaultSystemPrompt + "\nKeep the tone calm and sleepy; end every chapter on a settled, safe note.",
			UserPromptTemplate: `Write a short bedtime story for {age_group_label}.
Theme: {category_label}. Therapeutic goals: {therapeutic_goals}.
Use {target_chapters} chapters with {target_sections_per_chapter} sections each and {target_questions_per_chapter} gentle Reflection question per chapter.
Therapist notes: {custom_prompt}.`,
			TargetChapters:            2,
			TargetSectionsPerChapter:  2,
			TargetQuestionsPerChapter: 1,
			Active:                    true,
		},
		{
			ID:           "7b1f8f3e-2c1a-4c4e-9a55-0c6f1d7e0a03",
			Name:         "session-workbook",
			SystemPrompt: prompt.DefaultSystemPrompt + "\nThe story is read together in a therapy session; prefer Discussion and Activity questions.",
			UserPromptTemplate: `Write a session workbook story for {age_group_label} (age group {age_group}).
Theme: {category_label} ({category}). Therapeutic goals: {therapeutic_goals}.
Use {target_chapters} chapters, {target_sections_per_chapter} sections per chapter and {target_questions_per_chapter} Question sections per chapter.
Therapist notes: {custom_prompt}.`,
			TargetChapters:            4,
			TargetSectionsPerChapter:  4,
			TargetQuestionsPerChapter: 2,
			Active:                    true,
		},
	}
}

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化依赖
	deps, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	// 3. 迁移表结构
	if err := deps.PgClient.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated")

	// 4. 写入默认模板并失效缓存
	templates := defaultTemplates()
	ids := make([]string, 0, len(templates))
	for _, tpl := range templates {
		if err := deps.Templates.Upsert(ctx, tpl); err != nil {
			log.Fatalf("failed to seed template %s: %v", tpl.Name, err)
		}
		ids = append(ids, tpl.ID)
		fmt.Printf("Template %q ready with ID: %s\n", tpl.Name, tpl.ID)
	}
	if err := deps.TemplateCache.Invalidate(ctx, ids...); err != nil {
		fmt.Printf("Warning: failed to invalidate template cache: %v\n", err)
	}

	fmt.Println("Bootstrap completed")
}
