package entity

import "time"

// ProjectEventType 项目变更事件类型
type ProjectEventType string

const (
	ProjectEventCreated         ProjectEventType = "project.created"
	ProjectEventVersionAppended ProjectEventType = "project.version_appended"
	ProjectEventVersionUndone   ProjectEventType = "project.version_undone"
	ProjectEventRenamed         ProjectEventType = "project.renamed"
)

// ProjectEvent 项目变更后对外发布的事件
type ProjectEvent struct {
	Type        ProjectEventType `json:"type"`
	ProjectName string           `json:"project_name"`
	PrevName    string           `json:"prev_name,omitempty"`
	Version     int              `json:"version"`
	OccurredAt  time.Time        `json:"occurred_at"`
}
