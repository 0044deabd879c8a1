package task

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps tasks in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]types.TaskStatus
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]types.TaskStatus)}
}

func (s *MemoryStore) Create(_ context.Context, status types.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[status.ID]; exists {
		return errors.Newf(errors.ErrCodeTaskStoreFailed, "task %s already exists", status.ID)
	}

	s.tasks[status.ID] = status

	return nil
}

func (s *MemoryStore) Update(_ context.Context, status types.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[status.ID]; !exists {
		return errors.Newf(errors.ErrCodeTaskNotFound, "task %s not found", status.ID)
	}

	s.tasks[status.ID] = status

	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (types.TaskStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, exists := s.tasks[id]
	if !exists {
		return types.TaskStatus{}, errors.Newf(errors.ErrCodeTaskNotFound, "task %s not found", id)
	}

	return status, nil
}

func (s *MemoryStore) List(_ context.Context) ([]types.TaskStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.TaskStatus, 0, len(s.tasks))
	for _, status := range s.tasks {
		out = append(out, status)
	}

	slices.SortFunc(out, func(a, b types.TaskStatus) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

