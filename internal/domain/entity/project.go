// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// 新项目种子版本的占位内容
const (
	SeedDescription    = "Welcome to your new project! Start by describing your domain."
	SeedAssistantReply = "Welcome to your new project! How can I help you model your domain?"
	SeedDiagram        = "@startuml\nskinparam monochrome true\ntitle Your New Project\n\nclass ExampleEntity {\n  +id: string\n  +name: string\n}\n\nnote \"Start building your domain model!\" as N1\n@enduml"
)

// Project 项目，持有只追加的版本历史
type Project struct {
	ID        string            `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string            `json:"project_name" gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
	Versions  []*ProjectVersion `json:"versions" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (Project) TableName() string {
	return "projects"
}

// NewProject 创建带种子版本的项目
func NewProject(name string) *Project {
	now := time.Now()
	return &Project{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Versions:  []*ProjectVersion{NewSeedVersion()},
	}
}

// Latest 当前状态（最后一个版本）
func (p *Project) Latest() *ProjectVersion {
	if p == nil || len(p.Versions) == 0 {
		return nil
	}
	return p.Versions[len(p.Versions)-1]
}

// VersionCount 版本数量
func (p *Project) VersionCount() int {
	if p == nil {
		return 0
	}
	return len(p.Versions)
}

// State 组装当前项目状态
func (p *Project) State() *ProjectState {
	latest := p.Latest()
	if latest == nil {
		return nil
	}
	return &ProjectState{
		Name:        p.Name,
		Description: latest.DomainModelDescription,
		Diagram:     latest.PlantUML,
		Version:     latest.Version,
		Transcript:  TranscriptFromVersions(p.Versions),
		UpdatedAt:   latest.CreatedAt,
	}
}

// ProjectVersion 项目的一个不可变快照
type ProjectVersion struct {
	ID                     string    `json:"-" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID              string    `json:"-" gorm:"type:uuid;not null;uniqueIndex:uk_project_versions_project_version"`
	Version                int       `json:"version" gorm:"not null;uniqueIndex:uk_project_versions_project_version"`
	UserInput              *string   `json:"user_input" gorm:"type:text"`
	AssistantReply         *string   `json:"assistant" gorm:"column:assistant;type:text"`
	DomainModelDescription string    `json:"domain_model_description" gorm:"type:text;not null"`
	PlantUML               string    `json:"plant_uml" gorm:"column:plant_uml;type:text;not null"`
	CreatedAt              time.Time `json:"timestamp" gorm:"autoCreateTime"`
}

func (ProjectVersion) TableName() string {
	return "project_versions"
}

// NewSeedVersion 种子版本：占位描述与图，无用户输入
func NewSeedVersion() *ProjectVersion {
	reply := SeedAssistantReply
	return &ProjectVersion{
		Version:                1,
		AssistantReply:         &reply,
		DomainModelDescription: SeedDescription,
		PlantUML:               SeedDiagram,
		CreatedAt:              time.Now(),
	}
}

// ProjectState 对外的当前项目状态
type ProjectState struct {
	Name        string
	Description string
	Diagram     string
	Version     int
	Transcript  *Transcript
	UpdatedAt   time.Time
}

// IsPlaceholderDescription 描述是否为空或仍是种子占位
func IsPlaceholderDescription(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == SeedDescription
}

// IsPlaceholderDiagram 图是否为空或仍是种子占位
func IsPlaceholderDiagram(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == strings.TrimSpace(SeedDiagram)
}

// StringPtr 返回字符串指针
func StringPtr(s string) *string {
	return &s
}
