package service

import (
	"sort"
	"study_buddy_backend/internal/model"
)

// 规范类型 -> 历史上出现过的存储写法
var defaultActivityVariants = map[string][]string{
	model.ActivityLogin:              {model.ActivityLogin, model.ActivityUserLogin},
	model.ActivityAudioProcessed:     {model.ActivityAudioProcessed, model.ActivityAudioUploaded},
	model.ActivityDocumentAnalyzed:   {model.ActivityDocumentAnalyzed, model.ActivityDocumentUploaded},
	model.ActivityTextSummarized:     {model.ActivityTextSummarized},
	model.ActivityGoalCreated:        {model.ActivityGoalCreated, model.ActivityGoalSet},
	model.ActivityGoalAchieved:       {model.ActivityGoalAchieved, model.ActivityGoalCompleted},
	model.ActivityQuestionAsked:      {model.ActivityQuestionAsked},
	model.ActivityLeaderboardUpdated: {model.ActivityLeaderboardUpdated},
	model.ActivityMathProblemSolved:  {model.ActivityMathProblemSolved},
	model.ActivityQuizGenerated:      {model.ActivityQuizGenerated},
	model.ActivityQuizCompleted:      {model.ActivityQuizCompleted},
	model.ActivityFlashcards:         {model.ActivityFlashcards},
}

// 会触发连续天数（streak）检查的活动类型
var streakActivityTypes = map[string]bool{
	model.ActivityLogin:          true,
	model.ActivityUserLogin:      true,
	model.ActivityStudySession:   true,
	model.ActivityAssignmentDone: true,
}

// IsStreakActivity 判断活动是否影响连续学习天数
func IsStreakActivity(activityType string) bool {
	return streakActivityTypes[activityType]
}

// ActivityTypeNormalizer 将规范条件键映射为多个等价的存储写法。构造后只读
type ActivityTypeNormalizer struct {
	variants map[string][]string
}

// NewActivityTypeNormalizer 在默认映射基础上合并配置中的别名
func NewActivityTypeNormalizer(aliases map[string][]string) *ActivityTypeNormalizer {
	merged := make(map[string][]string, len(defaultActivityVariants)+len(aliases))
	for key, vs := range defaultActivityVariants {
		merged[key] = append([]string(nil), vs...)
	}

	for key, extra := range aliases {
		vs, ok := merged[key]
		if !ok {
			vs = []string{key}
		}
		for _, e := range extra {
			if e != "" && !containsString(vs, e) {
				vs = append(vs, e)
			}
		}
		merged[key] = vs
	}

	return &ActivityTypeNormalizer{variants: merged}
}

// Variants 返回满足该键的全部存储写法，未映射的键返回自身
func (n *ActivityTypeNormalizer) Variants(key string) []string {
	if vs, ok := n.variants[key]; ok {
		return append([]string(nil), vs...)
	}
	return []string{key}
}

// Matches 判断传入的活动类型是否满足条件键
func (n *ActivityTypeNormalizer) Matches(key, incoming string) bool {
	return containsString(n.Variants(key), incoming)
}

// Keys 已知的规范键，按字母序
func (n *ActivityTypeNormalizer) Keys() []string {
	keys := make([]string, 0, len(n.variants))
	for k := range n.variants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
