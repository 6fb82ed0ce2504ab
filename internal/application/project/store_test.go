package project

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/internal/infrastructure/cache"
	"domain-copilot-api/internal/infrastructure/persistence/memory"
	"domain-copilot-api/pkg/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*entity.ProjectEvent
}

func (p *recordingPublisher) PublishProjectEvent(_ context.Context, evt *entity.ProjectEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []entity.ProjectEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.ProjectEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestStore(t *testing.T) (*Store, *recordingPublisher) {
	t.Helper()
	lru, err := cache.NewLRU(64)
	require.NoError(t, err)
	events := &recordingPublisher{}
	return NewStore(memory.NewProjectRepository(), cache.NewProjectStateCache(lru, time.Minute), events, 5), events
}

func TestStore_CreateAssignsSequentialNames(t *testing.T) {
	ctx := context.Background()
	s, events := newTestStore(t)

	first, err := s.Create(ctx)
	require.NoError(t, err)
	second, err := s.Create(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Project 1", first)
	assert.Equal(t, "Project 2", second)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Project 1", "Project 2"}, names)
	assert.Equal(t, []entity.ProjectEventType{entity.ProjectEventCreated, entity.ProjectEventCreated}, events.types())
}

func TestStore_CreateSkipsTakenNames(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Rename(ctx, "Project 1", "Project 2"))

	name, err := s.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Project 3", name)
}

func TestStore_SeedState(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	name, err := s.Create(ctx)
	require.NoError(t, err)

	state, err := s.FetchLatest(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, entity.SeedDescription, state.Description)
	assert.Equal(t, entity.SeedDiagram, state.Diagram)
	assert.Equal(t, 1, state.Version)

	turns := state.Transcript.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, entity.RoleAssistant, turns[0].Role)
	assert.Equal(t, entity.SeedAssistantReply, turns[0].Content)
}

func TestStore_AppendCopiesForwardEmptyFields(t *testing.T) {
	ctx := context.Background()
	s, events := newTestStore(t)
	name, err := s.Create(ctx)
	require.NoError(t, err)

	_, err = s.AppendVersion(ctx, name, "a library with books", "ok", "Library has Books.", "@startuml\nclass Book\n@enduml")
	require.NoError(t, err)

	v, err := s.AppendVersion(ctx, name, "thanks", "you're welcome", "  ", "")
	require.NoError(t, err)
	assert.Equal(t, 3, v.Version)
	assert.Equal(t, "Library has Books.", v.DomainModelDescription)
	assert.Equal(t, "@startuml\nclass Book\n@enduml", v.PlantUML)

	state, err := s.FetchLatest(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Version)
	assert.Equal(t, "Library has Books.", state.Description)
	assert.Equal(t, 5, state.Transcript.Len())
	assert.Contains(t, events.types(), entity.ProjectEventVersionAppended)
}

func TestStore_SaveSnapshotHasNoAssistantTurn(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	name, err := s.Create(ctx)
	require.NoError(t, err)

	v, err := s.SaveSnapshot(ctx, name, "Edited description", "@startuml\nclass A\n@enduml")
	require.NoError(t, err)
	require.NotNil(t, v.UserInput)
	assert.Equal(t, "", *v.UserInput)
	assert.Nil(t, v.AssistantReply)

	state, err := s.FetchLatest(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "Edited description", state.Description)
	assert.Equal(t, 1, state.Transcript.Len())
}

func TestStore_UndoLast(t *testing.T) {
	ctx := context.Background()
	s, events := newTestStore(t)
	name, err := s.Create(ctx)
	require.NoError(t, err)

	_, err = s.UndoLast(ctx, name)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = s.AppendVersion(ctx, name, "hello", "hi", "D1", "U1")
	require.NoError(t, err)

	state, err := s.UndoLast(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Version)
	assert.Equal(t, entity.SeedDescription, state.Description)
	assert.Equal(t, 1, state.Transcript.Len())

	// 缓存必须已失效
	latest, err := s.FetchLatest(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)
	assert.Contains(t, events.types(), entity.ProjectEventVersionUndone)
}

func TestStore_UnknownProject(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.FetchLatest(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)

	_, err = s.AppendVersion(ctx, "missing", "x", "y", "D", "U")
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)

	_, err = s.UndoLast(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)

	err = s.Rename(ctx, "missing", "other")
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)
}

func TestStore_Rename(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a, err := s.Create(ctx)
	require.NoError(t, err)
	b, err := s.Create(ctx)
	require.NoError(t, err)

	// 先读一次让旧名进入缓存
	_, err = s.FetchLatest(ctx, a)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Rename(ctx, a, b), repository.ErrDuplicateName)
	assert.ErrorIs(t, s.Rename(ctx, "missing", b), repository.ErrDuplicateName)
	assert.ErrorIs(t, s.Rename(ctx, a, "   "), ErrInvalidArgument)

	require.NoError(t, s.Rename(ctx, a, "Library"))

	_, err = s.FetchLatest(ctx, a)
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)

	state, err := s.FetchLatest(ctx, "Library")
	require.NoError(t, err)
	assert.Equal(t, "Library", state.Name)
}

func TestStore_ConcurrentAppendsAreSerialized(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	name, err := s.Create(ctx)
	require.NoError(t, err)

	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendVersion(ctx, name, "turn", "reply", "D", "U")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
	}

	p, err := s.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1+ok, len(p.Versions))
	for i, v := range p.Versions {
		assert.Equal(t, i+1, v.Version)
	}
}

// gatedRepo 在下一次 GetByName 读完数据之后、返回之前执行 gate，用来制造慢读者
type gatedRepo struct {
	repository.ProjectRepository

	mu   sync.Mutex
	gate func()
}

func (r *gatedRepo) GetByName(ctx context.Context, name string) (*entity.Project, error) {
	p, err := r.ProjectRepository.GetByName(ctx, name)
	r.mu.Lock()
	gate := r.gate
	r.gate = nil
	r.mu.Unlock()
	if gate != nil {
		gate()
	}
	return p, err
}

func (r *gatedRepo) pauseNextRead(gate func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = gate
}

func TestStore_SlowReaderCannotRefillStaleState(t *testing.T) {
	ctx := context.Background()
	repo := &gatedRepo{ProjectRepository: memory.NewProjectRepository()}
	lru, err := cache.NewLRU(64)
	require.NoError(t, err)
	s := NewStore(repo, cache.NewProjectStateCache(lru, time.Minute), nil, 5)

	name, err := s.Create(ctx)
	require.NoError(t, err)

	reading := make(chan struct{})
	resume := make(chan struct{})
	repo.pauseNextRead(func() {
		close(reading)
		<-resume
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.FetchLatest(ctx, name)
		done <- err
	}()

	// 读者已拿到种子快照，此时写者提交新版本
	<-reading
	_, err = s.AppendVersion(ctx, name, "a library with books", "ok", "Library has Books.", "@startuml\nclass Book\n@enduml")
	require.NoError(t, err)
	close(resume)
	require.NoError(t, <-done)

	state, err := s.FetchLatest(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Version)
	assert.Equal(t, "Library has Books.", state.Description)
	assert.Equal(t, 3, state.Transcript.Len())

	// 基于读到的状态继续写入，描述不能回退到种子占位
	v, err := s.AppendVersion(ctx, name, "thanks", "you're welcome", state.Description, state.Diagram)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Version)
	assert.Equal(t, "Library has Books.", v.DomainModelDescription)
}

func TestStore_FetchCurrentBypassesCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProjectRepository()
	lru, err := cache.NewLRU(64)
	require.NoError(t, err)
	cached := NewStore(repo, cache.NewProjectStateCache(lru, time.Minute), nil, 5)
	// 另一个实例写入同一仓储，但不共享缓存
	other := NewStore(repo, nil, nil, 5)

	name, err := cached.Create(ctx)
	require.NoError(t, err)
	_, err = cached.FetchLatest(ctx, name)
	require.NoError(t, err)

	_, err = other.AppendVersion(ctx, name, "a shop", "ok", "Shop sells Products.", "")
	require.NoError(t, err)

	state, err := cached.FetchCurrent(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Version)
	assert.Equal(t, "Shop sells Products.", state.Description)

	_, err = cached.FetchCurrent(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)
	_, err = cached.FetchCurrent(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// duplicateOnceRepo 第一次 Create 返回名称冲突，模拟并发创建抢名
type duplicateOnceRepo struct {
	repository.ProjectRepository
	failed bool
}

func (r *duplicateOnceRepo) Create(ctx context.Context, p *entity.Project) error {
	if !r.failed {
		r.failed = true
		return repository.ErrDuplicateName
	}
	return r.ProjectRepository.Create(ctx, p)
}

func TestStore_CreateRetryIsNotAVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&duplicateOnceRepo{ProjectRepository: memory.NewProjectRepository()}, nil, nil, 5)

	retries := testutil.ToFloat64(metrics.StoreOperationTotal.WithLabelValues("create", "retry"))
	conflicts := testutil.ToFloat64(metrics.StoreVersionConflictTotal)

	name, err := s.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Project 1", name)

	assert.Equal(t, retries+1, testutil.ToFloat64(metrics.StoreOperationTotal.WithLabelValues("create", "retry")))
	assert.Equal(t, conflicts, testutil.ToFloat64(metrics.StoreVersionConflictTotal))
}
