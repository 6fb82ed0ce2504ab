package dto

import "domain-copilot-api/internal/domain/entity"

// ProjectListResponse /get_projects 响应
type ProjectListResponse struct {
	Projects []string `json:"projects"`
}

// CreateProjectResponse /create_project 响应
type CreateProjectResponse struct {
	Message     string `json:"message"`
	ProjectName string `json:"project_name"`
}

// RenameProjectRequest /rename_project 请求
type RenameProjectRequest struct {
	OldProjectName string `json:"old_project_name"`
	NewProjectName string `json:"new_project_name"`
}

// ProjectNameRequest 只携带项目名的请求
type ProjectNameRequest struct {
	ProjectName string `json:"project_name"`
}

// SaveProjectRequest /save_project_data 请求。
// chat_history 只为兼容前端而接收，对话记录始终由版本历史重建。
type SaveProjectRequest struct {
	ProjectName            string        `json:"project_name"`
	DomainModelDescription string        `json:"domain_model_description"`
	PlantUML               string        `json:"plant_uml"`
	ChatHistory            []ChatMessage `json:"chat_history,omitempty"`
}

// SaveProjectResponse /save_project_data 响应
type SaveProjectResponse struct {
	Message string `json:"message"`
	Version int    `json:"version"`
}

// ProjectData 项目当前状态
type ProjectData struct {
	DomainModelDescription string        `json:"domain_model_description"`
	PlantUML               string        `json:"plant_uml"`
	ChatHistory            []ChatMessage `json:"chat_history"`
}

// ProjectDataResponse /get_project_data 与 /undo_project_change 响应
type ProjectDataResponse struct {
	ProjectData ProjectData `json:"project_data"`
}

// ToProjectDataResponse 项目状态转换为响应
func ToProjectDataResponse(state *entity.ProjectState) ProjectDataResponse {
	return ProjectDataResponse{
		ProjectData: ProjectData{
			DomainModelDescription: state.Description,
			PlantUML:               state.Diagram,
			ChatHistory:            ToChatHistory(state.Transcript),
		},
	}
}
