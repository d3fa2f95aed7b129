// Package entity 定义领域实体
package entity

// AgeGroup 读者年龄段
type AgeGroup string

const (
	AgeGroup3To5   AgeGroup = "3-5"
	AgeGroup6To7   AgeGroup = "6-7"
	AgeGroup8To10  AgeGroup = "8-10"
	AgeGroup11To13 AgeGroup = "11-13"
	AgeGroup14To17 AgeGroup = "14-17"
)

// StoryCategory 故事类别
type StoryCategory string

const (
	CategoryAnxietyManagement   StoryCategory = "ANXIETY_MANAGEMENT"
	CategoryEmotionalRegulation StoryCategory = "EMOTIONAL_REGULATION"
	CategorySocialSkills        StoryCategory = "SOCIAL_SKILLS"
	CategorySelfEsteem          StoryCategory = "SELF_ESTEEM"
	CategoryGriefAndLoss        StoryCategory = "GRIEF_AND_LOSS"
	CategoryFamilyChanges       StoryCategory = "FAMILY_CHANGES"
	CategoryBullying            StoryCategory = "BULLYING"
	CategoryMindfulness         StoryCategory = "MINDFULNESS"
)

// TherapeuticGoal 治疗目标
type TherapeuticGoal string

const (
	GoalReduceAnxiety             TherapeuticGoal = "REDUCE_ANXIETY"
	GoalBuildConfidence           TherapeuticGoal = "BUILD_CONFIDENCE"
	GoalImproveEmotionalAwareness TherapeuticGoal = "IMPROVE_EMOTIONAL_AWARENESS"
	GoalDevelopCopingSkills       TherapeuticGoal = "DEVELOP_COPING_SKILLS"
	GoalEnhanceSocialSkills       TherapeuticGoal = "ENHANCE_SOCIAL_SKILLS"
	GoalProcessGrief              TherapeuticGoal = "PROCESS_GRIEF"
	GoalBuildResilience           TherapeuticGoal = "BUILD_RESILIENCE"
	GoalPromoteMindfulness        TherapeuticGoal = "PROMOTE_MINDFULNESS"
	GoalStrengthenRelationships   TherapeuticGoal = "STRENGTHEN_RELATIONSHIPS"
	GoalImproveSelfRegulation     TherapeuticGoal = "IMPROVE_SELF_REGULATION"
)

var ageGroupLabels = map[AgeGroup]string{
	AgeGroup3To5:   "preschool children aged 3 to 5",
	AgeGroup6To7:   "early readers aged 6 to 7",
	AgeGroup8To10:  "children aged 8 to 10",
	AgeGroup11To13: "pre-teens aged 11 to 13",
	AgeGroup14To17: "teenagers aged 14 to 17",
}

var categoryLabels = map[StoryCategory]string{
	CategoryAnxietyManagement:   "anxiety management",
	CategoryEmotionalRegulation: "emotional regulation",
	CategorySocialSkills:        "social skills",
	CategorySelfEsteem:          "self-esteem",
	CategoryGriefAndLoss:        "grief and loss",
	CategoryFamilyChanges:       "family changes",
	CategoryBullying:            "bullying",
	CategoryMindfulness:         "mindfulness",
}

var goalLabels = map[TherapeuticGoal]string{
	GoalReduceAnxiety:             "reduce anxiety",
	GoalBuildConfidence:           "build confidence",
	GoalImproveEmotionalAwareness: "improve emotional awareness",
	GoalDevelopCopingSkills:       "develop coping skills",
	GoalEnhanceSocialSkills:       "enhance social skills",
	GoalProcessGrief:              "process grief",
	GoalBuildResilience:           "build resilience",
	GoalPromoteMindfulness:        "promote mindfulness",
	GoalStrengthenRelationships:   "strengthen relationships",
	GoalImproveSelfRegulation:     "improve self-regulation",
}

// AllAgeGroups 按从小到大顺序返回全部年龄段
func AllAgeGroups() []AgeGroup {
	return []AgeGroup{AgeGroup3To5, AgeGroup6To7, AgeGroup8To10, AgeGroup11To13, AgeGroup14To17}
}

// AllCategories 返回全部故事类别
func AllCategories() []StoryCategory {
	return []StoryCategory{
		CategoryAnxietyManagement, CategoryEmotionalRegulation, CategorySocialSkills, CategorySelfEsteem,
		CategoryGriefAndLoss, CategoryFamilyChanges, CategoryBullying, CategoryMindfulness,
	}
}

// AllGoals 返回全部治疗目标
func AllGoals() []TherapeuticGoal {
	return []TherapeuticGoal{
		GoalReduceAnxiety, GoalBuildConfidence, GoalImproveEmotionalAwareness, GoalDevelopCopingSkills,
		GoalEnhanceSocialSkills, GoalProcessGrief, GoalBuildResilience, GoalPromoteMindfulness,
		GoalStrengthenRelationships, GoalImproveSelfRegulation,
	}
}

// Valid 是否为已知年龄段
func (a AgeGroup) Valid() bool {
	_, ok := ageGroupLabels[a]
	return ok
}

// Label 可读描述
func (a AgeGroup) Label() string {
	if l, ok := ageGroupLabels[a]; ok {
		return l
	}
	return string(a)
}

// Valid 是否为已知类别
func (c StoryCategory) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label 可读描述
func (c StoryCategory) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid 是否为已知治疗目标
func (g TherapeuticGoal) Valid() bool {
	_, ok := goalLabels[g]
	return ok
}

// Label 可读描述
func (g TherapeuticGoal) Label() string {
	if l, ok := goalLabels[g]; ok {
		return l
	}
	return string(g)
}
