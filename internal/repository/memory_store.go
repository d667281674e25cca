package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskshare/internal/model"
)

// MemoryStore はインメモリのユーザー・タスク・セッションストア。
// DATABASE_URL未設定時のローカル実行とテストで使用する。
// UserRepository / TaskRepository / SessionRepository のすべてを実装し、
// PostgreSQL実装と同じ契約（参照整合性チェックを除く）を提供する。
// 全操作はmutexで保護され、返却値は常にコピーなので呼び出し側での変更は反映されない。
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	tasks    map[string]*model.Task
	sessions map[string]*model.Session
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*model.User),
		tasks:    make(map[string]*model.Task),
		sessions: make(map[string]*model.Session),
	}
}

// --- UserRepository ---

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

// FindByGoogleID はGoogleの外部IDでユーザーを検索する。見つからない場合はnilを返す。
func (s *MemoryStore) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.GoogleID == googleID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

// Create はユーザーを作成する。
// emailまたはgoogle_idが既存ユーザーと重複する場合はErrDuplicateUserでラップしたエラーを返す。
func (s *MemoryStore) Create(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email || existing.GoogleID == user.GoogleID {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, user.GoogleID)
		}
	}

	copied := *user
	s.users[copied.ID] = &copied
	return nil
}

// ListAll は全ユーザーを表示名の昇順で返す。
func (s *MemoryStore) ListAll(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*model.User, 0, len(s.users))
	for _, user := range s.users {
		copied := *user
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Name < users[j].Name
	})
	return users, nil
}

// --- TaskRepository ---

// FindTaskByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
// UserRepository.FindByIDとのメソッド名衝突を避けるためFindByIDとは別名にしている。
func (s *MemoryStore) FindTaskByID(ctx context.Context, id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

// CreateTask はタスクを作成する。
// IDが空の場合は新規IDを割り当て、StatusとCreatedAtが未設定の場合はデフォルト値を補う。
func (s *MemoryStore) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *task
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.Status == "" {
		created.Status = model.TaskStatusPending
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	stored := created
	s.tasks[stored.ID] = &stored
	return &created, nil
}

// UpdateTask は指定IDのタスクを部分更新し、更新後のレコードを返す。
// ID・CreatedAt・CreatedByIDは決して変更しない。見つからない場合はnilを返す。
func (s *MemoryStore) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		task.DueDate = &due
	}
	if patch.AssignedToID != nil {
		task.AssignedToID = *patch.AssignedToID
	}

	copied := *task
	return &copied, nil
}

// DeleteTask は指定IDのタスクを削除する。対象が存在しない場合もエラーにしない（冪等）。
func (s *MemoryStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, id)
	return nil
}

// ListAssignedTo は指定ユーザーが担当するタスクをCreatedAt降順で返す。
func (s *MemoryStore) ListAssignedTo(ctx context.Context, userID string) ([]*model.Task, error) {
	return s.listTasks(func(t *model.Task) bool {
		return t.AssignedToID == userID
	}), nil
}

// ListDelegatedBy は指定ユーザーが作成し他人に割り当てたタスクをCreatedAt降順で返す。
func (s *MemoryStore) ListDelegatedBy(ctx context.Context, userID string) ([]*model.Task, error) {
	return s.listTasks(func(t *model.Task) bool {
		return t.CreatedByID == userID && t.AssignedToID != userID
	}), nil
}

// ListCompletedFor は指定ユーザーが担当する完了済みタスクをCreatedAt降順で返す。
func (s *MemoryStore) ListCompletedFor(ctx context.Context, userID string) ([]*model.Task, error) {
	return s.listTasks(func(t *model.Task) bool {
		return t.AssignedToID == userID && t.Status == model.TaskStatusCompleted
	}), nil
}

// listTasks は述語に一致するタスクをCreatedAt降順で返す共通処理。
func (s *MemoryStore) listTasks(match func(*model.Task) bool) []*model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*model.Task
	for _, task := range s.tasks {
		if match(task) {
			copied := *task
			tasks = append(tasks, &copied)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// --- SessionRepository ---

// CreateSession はセッションを作成する。
func (s *MemoryStore) CreateSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[copied.ID] = &copied
	return nil
}

// FindSessionByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (s *MemoryStore) FindSessionByID(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || !session.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

// DeleteSessionByID は指定IDのセッションを削除する。
func (s *MemoryStore) DeleteSessionByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// DeleteExpiredSessions は期限切れセッションを削除し、削除件数を返す。
func (s *MemoryStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var deleted int64
	for id, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Tasks はTaskRepositoryとしてのビューを返す。
func (s *MemoryStore) Tasks() TaskRepository { return &memoryTaskRepo{store: s} }

// Sessions はSessionRepositoryとしてのビューを返す。
func (s *MemoryStore) Sessions() SessionRepository { return &memorySessionRepo{store: s} }

// Users はUserRepositoryとしてのビューを返す。
func (s *MemoryStore) Users() UserRepository { return s }

// memoryTaskRepo はMemoryStoreのタスク操作をTaskRepositoryに適合させるアダプタ。
type memoryTaskRepo struct {
	store *MemoryStore
}

func (r *memoryTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	return r.store.FindTaskByID(ctx, id)
}
func (r *memoryTaskRepo) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	return r.store.CreateTask(ctx, task)
}
func (r *memoryTaskRepo) Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	return r.store.UpdateTask(ctx, id, patch)
}
func (r *memoryTaskRepo) Delete(ctx context.Context, id string) error {
	return r.store.DeleteTask(ctx, id)
}
func (r *memoryTaskRepo) ListAssignedTo(ctx context.Context, userID string) ([]*model.Task, error) {
	return r.store.ListAssignedTo(ctx, userID)
}
func (r *memoryTaskRepo) ListDelegatedBy(ctx context.Context, userID string) ([]*model.Task, error) {
	return r.store.ListDelegatedBy(ctx, userID)
}
func (r *memoryTaskRepo) ListCompletedFor(ctx context.Context, userID string) ([]*model.Task, error) {
	return r.store.ListCompletedFor(ctx, userID)
}

// memorySessionRepo はMemoryStoreのセッション操作をSessionRepositoryに適合させるアダプタ。
type memorySessionRepo struct {
	store *MemoryStore
}

func (r *memorySessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.store.CreateSession(ctx, session)
}
func (r *memorySessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return r.store.FindSessionByID(ctx, id)
}
func (r *memorySessionRepo) DeleteByID(ctx context.Context, id string) error {
	return r.store.DeleteSessionByID(ctx, id)
}
func (r *memorySessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return r.store.DeleteExpiredSessions(ctx)
}

// compile-time interface checks
var (
	_ UserRepository    = (*MemoryStore)(nil)
	_ TaskRepository    = (*memoryTaskRepo)(nil)
	_ SessionRepository = (*memorySessionRepo)(nil)
)
