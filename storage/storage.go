package storage

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"tracker-api/domain"
)

// Store holds the canonical task collection for the process lifetime.
// Echo serves requests on concurrent goroutines, so all access goes
// through the mutex.
type Store struct {
	mu     sync.Mutex
	tasks  []domain.Task
	nextID int64
}

// New creates an empty Store. Identifiers start at "1" and are never
// reused, even after deletion.
func New() *Store {
	return &Store{nextID: 1}
}

// ListTasks returns a snapshot of all tasks ordered newest first.
// Mutating the store afterwards does not affect returned slices.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, len(s.tasks))
	// Reverse creation order first so a stable sort breaks CreatedAt
	// ties in favour of the newer id.
	for i, t := range s.tasks {
		out[len(s.tasks)-1-i] = t
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// CreateTask validates and trims the input, assigns a fresh id and
// timestamp, and appends the task to the collection.
func (s *Store) CreateTask(ctx context.Context, title, description string) (domain.Task, error) {
	trimmed, err := domain.ValidateTitle(title)
	if err != nil {
		return domain.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := domain.Task{
		ID:          strconv.FormatInt(s.nextID, 10),
		Title:       trimmed,
		Description: strings.TrimSpace(description),
		Done:        false,
		CreatedAt:   nowMillis(),
	}
	s.nextID++
	s.tasks = append(s.tasks, task)
	return task, nil
}

// UpdateTask merges non-nil patch fields onto the task with the given id.
// A patched title goes through the same validation as create.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	var trimmedTitle string
	if patch.Title != nil {
		var err error
		trimmedTitle, err = domain.ValidateTitle(*patch.Title)
		if err != nil {
			return domain.Task{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return domain.Task{}, &domain.NotFoundError{ID: id}
	}
	t := &s.tasks[idx]
	if patch.Title != nil {
		t.Title = trimmedTitle
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Done != nil {
		t.Done = *patch.Done
	}
	return *t, nil
}

// DeleteTask removes the task with the given id and returns its last
// known state.
func (s *Store) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return domain.Task{}, &domain.NotFoundError{ID: id}
	}
	removed := s.tasks[idx]
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	return removed, nil
}

func (s *Store) index(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
