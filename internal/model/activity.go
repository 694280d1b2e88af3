package model

import "time"

// 规范活动类型
const (
	ActivityLogin              = "login"
	ActivityUserLogin          = "user_login"
	ActivityStudySession       = "study_session"
	ActivityAssignmentDone     = "assignment_completed"
	ActivityAudioProcessed     = "audio_processed"
	ActivityAudioUploaded      = "audio_uploaded"
	ActivityDocumentAnalyzed   = "document_analyzed"
	ActivityDocumentUploaded   = "document_uploaded"
	ActivityTextSummarized     = "text_summarized"
	ActivityGoalCreated        = "goal_created"
	ActivityGoalSet            = "goal_set"
	ActivityGoalAchieved       = "goal_achieved"
	ActivityGoalCompleted      = "goal_completed"
	ActivityQuestionAsked      = "question_asked"
	ActivityLeaderboardUpdated = "leaderboard_updated"
	ActivityMathProblemSolved  = "math_problem_solved"
	ActivityQuizGenerated      = "quiz_generated"
	ActivityQuizCompleted      = "quiz_completed"
	ActivityFlashcards         = "flashcards_generated"
	ActivityBadgeAwarded       = "badge_awarded"
)

// UserActivity 用户行为日志，只追加不修改
type UserActivity struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"type:varchar(36);not null;index:idx_activity_user_type_time,priority:1" json:"userId"`
	ActivityType string    `gorm:"size:64;not null;index:idx_activity_user_type_time,priority:2" json:"activityType"`
	Timestamp    time.Time `gorm:"not null;index:idx_activity_user_type_time,priority:3" json:"timestamp"`
	Metadata     Metadata  `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}
