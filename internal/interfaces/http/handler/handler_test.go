package handler

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-copilot-api/internal/application/modeling"
	"domain-copilot-api/internal/application/project"
	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/infrastructure/persistence/memory"
	"domain-copilot-api/internal/interfaces/http/dto"
	"domain-copilot-api/pkg/errors"
)

type fakeTurns struct {
	handle func(ctx context.Context, projectName, utterance string) (*modeling.TurnResult, error)
	calls  int
}

func (f *fakeTurns) HandleTurn(ctx context.Context, projectName, utterance string) (*modeling.TurnResult, error) {
	f.calls++
	return f.handle(ctx, projectName, utterance)
}

type fakeSynth struct {
	out string
	err error
}

func (f *fakeSynth) Synthesize(context.Context, string) (string, error) {
	return f.out, f.err
}

func (f *fakeSynth) Adjust(context.Context, string, string, string) (string, error) {
	return f.out, f.err
}

type testServer struct {
	engine *gin.Engine
	store  *project.Store
	turns  *fakeTurns
	synth  *fakeSynth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := project.NewStore(memory.NewProjectRepository(), nil, nil, 5)
	s := &testServer{
		engine: gin.New(),
		store:  store,
		turns:  &fakeTurns{},
		synth:  &fakeSynth{},
	}

	mh := NewModelingHandler(s.turns, s.synth, store)
	ph := NewProjectHandler(store)
	hh := NewHealthHandler("test")

	s.engine.GET("/health", hh.Health)
	s.engine.GET("/ready", hh.Ready)
	s.engine.POST("/chat", mh.Chat)
	s.engine.POST("/generate_uml", mh.GenerateUML)
	s.engine.GET("/get_domain_model_descriptions", mh.GetDomainModelDescription)
	s.engine.GET("/get_projects", ph.ListProjects)
	s.engine.POST("/create_project", ph.CreateProject)
	s.engine.POST("/rename_project", ph.RenameProject)
	s.engine.GET("/get_project_data", ph.GetProjectData)
	s.engine.POST("/save_project_data", ph.SaveProjectData)
	s.engine.POST("/undo_project_change", ph.UndoProjectChange)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) createProject(t *testing.T) string {
	t.Helper()
	name, err := s.store.Create(context.Background())
	require.NoError(t, err)
	return name
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestChat_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/chat", dto.ChatRequest{Message: "  ", ProjectName: "Project 1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User input is required", decode[dto.ErrorResponse](t, w).Error)

	w = s.do(t, http.MethodPost, "/chat", dto.ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Project name is required", decode[dto.ErrorResponse](t, w).Error)

	w = s.do(t, http.MethodPost, "/chat", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body.", decode[dto.ErrorResponse](t, w).Error)

	assert.Equal(t, 0, s.turns.calls)
}

func TestChat_ModelRouteResponse(t *testing.T) {
	s := newTestServer(t)
	s.turns.handle = func(_ context.Context, projectName, utterance string) (*modeling.TurnResult, error) {
		assert.Equal(t, "Project 1", projectName)
		assert.Equal(t, "a library has books", utterance)
		return &modeling.TurnResult{
			Description: "Library has Books.",
			Diagram:     "@startuml\n@enduml",
			Reply:       "Created.",
			Route:       entity.RouteModel,
		}, nil
	}

	w := s.do(t, http.MethodPost, "/chat", dto.ChatRequest{Message: " a library has books ", ProjectName: "Project 1"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{
		"domain_model_description": "Library has Books.",
		"plant_uml":                "@startuml\n@enduml",
		"suggestion":               "Created.",
	}, body)
}

func TestChat_ConversationRouteResponse(t *testing.T) {
	s := newTestServer(t)
	s.turns.handle = func(context.Context, string, string) (*modeling.TurnResult, error) {
		return &modeling.TurnResult{
			Description: "D",
			Diagram:     "U",
			Reply:       "Glad you like it!",
			Route:       entity.RouteCasual,
			Transcript: entity.NewTranscript(
				entity.Turn{Role: entity.RoleUser, Content: "nice"},
				entity.Turn{Role: entity.RoleAssistant, Content: "Glad you like it!"},
			),
		}, nil
	}

	w := s.do(t, http.MethodPost, "/chat", dto.ChatRequest{Message: "nice", ProjectName: "Project 1"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[dto.ConversationTurnResponse](t, w)
	assert.Equal(t, "Glad you like it!", resp.Response)
	assert.Equal(t, "D", resp.DomainModelDescription)
	assert.Equal(t, []dto.ChatMessage{
		{Role: "user", Content: "nice"},
		{Role: "assistant", Content: "Glad you like it!"},
	}, resp.History)
}

func TestChat_ErrorMapping(t *testing.T) {
	s := newTestServer(t)

	s.turns.handle = func(ctx context.Context, projectName, _ string) (*modeling.TurnResult, error) {
		_, err := s.store.FetchLatest(ctx, projectName)
		return nil, err
	}
	w := s.do(t, http.MethodPost, "/chat", dto.ChatRequest{Message: "hi", ProjectName: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project 'missing' not found.", decode[dto.ErrorResponse](t, w).Error)

	s.turns.handle = func(context.Context, string, string) (*modeling.TurnResult, error) {
		return nil, stderrors.New("connection reset by peer")
	}
	w = s.do(t, http.MethodPost, "/chat", dto.ChatRequest{Message: "hi", ProjectName: "Project 1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, "An unexpected error occurred", resp.Error)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestGenerateUML(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/generate_uml", dto.GenerateUMLRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Domain Model Description is required", decode[dto.ErrorResponse](t, w).Error)

	s.synth.out = "@startuml\nclass Book\n@enduml"
	w = s.do(t, http.MethodPost, "/generate_uml", dto.GenerateUMLRequest{DomainModelDescriptionText: "Book."})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "@startuml\nclass Book\n@enduml", decode[dto.GenerateUMLResponse](t, w).PlantUML)

	s.synth.err = fmt.Errorf("%w: upstream", modeling.ErrSynthesisFailed)
	w = s.do(t, http.MethodPost, "/generate_uml", dto.GenerateUMLRequest{DomainModelDescriptionText: "Book."})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, "An error occurred while generating the UML", resp.Error)
	assert.Equal(t, errors.CodeGenerationFailed, resp.Code)
}

func TestGetDomainModelDescription(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/get_domain_model_descriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	name := s.createProject(t)
	w = s.do(t, http.MethodGet, "/get_domain_model_descriptions?project_name=Project%201", nil)
	require.Equal(t, http.StatusOK, w.Code, name)
	assert.Equal(t, entity.SeedDescription, decode[dto.DomainModelDescriptionResponse](t, w).DomainModelDescription)
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/create_project", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[dto.CreateProjectResponse](t, w)
	assert.Equal(t, "Project 1", created.ProjectName)
	assert.Equal(t, "Project 'Project 1' created successfully.", created.Message)

	w = s.do(t, http.MethodPost, "/create_project", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/get_projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Project 1", "Project 2"}, decode[dto.ProjectListResponse](t, w).Projects)

	w = s.do(t, http.MethodGet, "/get_project_data?project_name=Project%201", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode[dto.ProjectDataResponse](t, w).ProjectData
	assert.Equal(t, entity.SeedDescription, data.DomainModelDescription)
	assert.Equal(t, entity.SeedDiagram, data.PlantUML)
	assert.Equal(t, []dto.ChatMessage{{Role: "assistant", Content: entity.SeedAssistantReply}}, data.ChatHistory)

	w = s.do(t, http.MethodPost, "/save_project_data", dto.SaveProjectRequest{
		ProjectName:            "Project 1",
		DomainModelDescription: "Edited.",
	})
	require.Equal(t, http.StatusOK, w.Code)
	saved := decode[dto.SaveProjectResponse](t, w)
	assert.Equal(t, 2, saved.Version)

	w = s.do(t, http.MethodGet, "/get_project_data?project_name=Project%201", nil)
	data = decode[dto.ProjectDataResponse](t, w).ProjectData
	assert.Equal(t, "Edited.", data.DomainModelDescription)
	assert.Equal(t, entity.SeedDiagram, data.PlantUML)

	w = s.do(t, http.MethodPost, "/undo_project_change", dto.ProjectNameRequest{ProjectName: "Project 1"})
	require.Equal(t, http.StatusOK, w.Code)
	data = decode[dto.ProjectDataResponse](t, w).ProjectData
	assert.Equal(t, entity.SeedDescription, data.DomainModelDescription)

	w = s.do(t, http.MethodPost, "/undo_project_change", dto.ProjectNameRequest{ProjectName: "Project 1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot undo the initial project version.", decode[dto.ErrorResponse](t, w).Error)
}

func TestRenameProject(t *testing.T) {
	s := newTestServer(t)
	s.createProject(t)
	s.createProject(t)

	w := s.do(t, http.MethodPost, "/rename_project", dto.RenameProjectRequest{OldProjectName: "Project 1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/rename_project", dto.RenameProjectRequest{OldProjectName: "Project 1", NewProjectName: "Project 2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Project 'Project 2' already exists.", decode[dto.ErrorResponse](t, w).Error)

	w = s.do(t, http.MethodPost, "/rename_project", dto.RenameProjectRequest{OldProjectName: "Nope", NewProjectName: "Library"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 旧名不存在且新名已占用时，按冲突处理
	w = s.do(t, http.MethodPost, "/rename_project", dto.RenameProjectRequest{OldProjectName: "Nope", NewProjectName: "Project 2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Project 'Project 2' already exists.", decode[dto.ErrorResponse](t, w).Error)

	w = s.do(t, http.MethodPost, "/rename_project", dto.RenameProjectRequest{OldProjectName: "Project 1", NewProjectName: "Library"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Project renamed from 'Project 1' to 'Library' successfully.", decode[dto.MessageResponse](t, w).Message)
}

func TestProjectEndpointsRequireName(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/get_project_data", nil},
		{http.MethodPost, "/save_project_data", dto.SaveProjectRequest{}},
		{http.MethodPost, "/undo_project_change", dto.ProjectNameRequest{}},
	} {
		w := s.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tc.path)
		assert.Equal(t, "Project name is required.", decode[dto.ErrorResponse](t, w).Error, tc.path)
	}

	w := s.do(t, http.MethodPost, "/save_project_data", dto.SaveProjectRequest{ProjectName: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", decode[HealthResponse](t, w).Version)

	w = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	hh := NewHealthHandler("test",
		Dependency{Name: "postgres", Checker: stubChecker{}, Required: true},
		Dependency{Name: "redis", Checker: stubChecker{err: stderrors.New("down")}},
	)
	engine.GET("/ready", hh.Ready)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)

	engine = gin.New()
	hh = NewHealthHandler("test", Dependency{Name: "postgres", Checker: stubChecker{err: stderrors.New("down")}, Required: true})
	engine.GET("/ready", hh.Ready)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
