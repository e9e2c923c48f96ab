package domain

type ActivityType string

const (
	ActivityComment       ActivityType = "comment"
	ActivityStatusChanged ActivityType = "status_changed"
	ActivityStageChanged  ActivityType = "stage_changed"
	ActivityTaskCreated   ActivityType = "task_created"
	ActivitySystem        ActivityType = "system"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityComment, ActivityStatusChanged, ActivityStageChanged, ActivityTaskCreated, ActivitySystem:
		return true
	}
	return false
}
