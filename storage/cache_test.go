package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tracker-api/domain"
)

type stubBackend struct {
	listFn   func(ctx context.Context) ([]domain.Task, error)
	createFn func(ctx context.Context, title, description string) (domain.Task, error)
	updateFn func(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	deleteFn func(ctx context.Context, id string) (domain.Task, error)
}

func (s *stubBackend) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if s.listFn == nil {
		return nil, errors.New("unexpected ListTasks call")
	}
	return s.listFn(ctx)
}

func (s *stubBackend) CreateTask(ctx context.Context, title, description string) (domain.Task, error) {
	if s.createFn == nil {
		return domain.Task{}, errors.New("unexpected CreateTask call")
	}
	return s.createFn(ctx, title, description)
}

func (s *stubBackend) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if s.updateFn == nil {
		return domain.Task{}, errors.New("unexpected UpdateTask call")
	}
	return s.updateFn(ctx, id, patch)
}

func (s *stubBackend) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	if s.deleteFn == nil {
		return domain.Task{}, errors.New("unexpected DeleteTask call")
	}
	return s.deleteFn(ctx, id)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheListTasksMissThenHit(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	expected := []domain.Task{{ID: "1", Title: "Write code", CreatedAt: 1700000000000}}

	var calls int
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Task, error) {
			calls++
			return expected, nil
		},
	}, client, time.Minute)

	for i := 0; i < 2; i++ {
		got, err := cache.ListTasks(ctx)
		if err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, expected) {
			t.Fatalf("list %d: got %#v", i, got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single backend call, got %d", calls)
	}
}

func TestCacheMutationsEvict(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	task := domain.Task{ID: "1", Title: "cached"}
	var listCalls int
	done := true
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Task, error) {
			listCalls++
			return []domain.Task{task}, nil
		},
		createFn: func(ctx context.Context, title, description string) (domain.Task, error) {
			return domain.Task{ID: "2", Title: title}, nil
		},
		updateFn: func(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
			return domain.Task{ID: id, Done: *patch.Done}, nil
		},
		deleteFn: func(ctx context.Context, id string) (domain.Task, error) {
			return domain.Task{ID: id}, nil
		},
	}, client, time.Minute)

	mutations := []func() error{
		func() error { _, err := cache.CreateTask(ctx, "new", ""); return err },
		func() error { _, err := cache.UpdateTask(ctx, "1", domain.TaskPatch{Done: &done}); return err },
		func() error { _, err := cache.DeleteTask(ctx, "1"); return err },
	}
	for i, mutate := range mutations {
		if _, err := cache.ListTasks(ctx); err != nil {
			t.Fatalf("warm cache %d: %v", i, err)
		}
		if err := mutate(); err != nil {
			t.Fatalf("mutation %d: %v", i, err)
		}
		if err := client.Get(ctx, tasksCacheKey).Err(); err != redis.Nil {
			t.Fatalf("mutation %d must evict the cache, got %v", i, err)
		}
	}
	if listCalls != len(mutations) {
		t.Fatalf("expected %d backend list calls, got %d", len(mutations), listCalls)
	}
}

func TestCacheFailedMutationKeepsCache(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Task, error) {
			return []domain.Task{{ID: "1"}}, nil
		},
		deleteFn: func(ctx context.Context, id string) (domain.Task, error) {
			return domain.Task{}, &domain.NotFoundError{ID: id}
		},
	}, client, time.Minute)

	if _, err := cache.ListTasks(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := cache.DeleteTask(ctx, "42"); err == nil {
		t.Fatal("expected delete error")
	}
	if err := client.Get(ctx, tasksCacheKey).Err(); err != nil {
		t.Fatalf("failed mutation must not evict, got %v", err)
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	expected := []domain.Task{{ID: "7", Title: "fresh"}}
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Task, error) {
			return expected, nil
		},
	}, client, time.Minute)

	if err := client.Set(ctx, tasksCacheKey, "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	got, err := cache.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected fallback to backend, got %#v", got)
	}
}

func TestCacheNilRedisDelegates(t *testing.T) {
	ctx := context.Background()
	expected := []domain.Task{{ID: "1"}}
	cache := NewCache(&stubBackend{
		listFn: func(ctx context.Context) ([]domain.Task, error) { return expected, nil },
	}, nil, time.Minute)

	got, err := cache.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected raw backend result, got %#v", got)
	}
}

func TestCacheEmbedsMemoryStore(t *testing.T) {
	cache := NewCache(New(), nil, time.Minute)
	if cache.Store == nil {
		t.Fatal("expected embedded *Store when wrapping the memory store")
	}
}
