package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu          sync.Mutex
	store       map[string][]byte
	invalidated []string
	getErr      error
}

func (s *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return s.getErr
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func TestCacheServiceRemember(t *testing.T) {
	repo := &memoryCacheRepo{}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)
	loads := 0
	load := func(dest *[]string) func(context.Context) error {
		return func(context.Context) error {
			loads++
			*dest = []string{"BCA1A"}
			return nil
		}
	}

	var first []string
	hit, err := svc.Remember(context.Background(), "timetable:c1:all", 0, &first, load(&first))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"BCA1A"}, first)

	var second []string
	hit, err = svc.Remember(context.Background(), "timetable:c1:all", 0, &second, load(&second))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)

	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 1, snapshot.CacheHits)
	assert.EqualValues(t, 1, snapshot.CacheMisses)
}

func TestCacheServiceRememberFallsBackOnCacheError(t *testing.T) {
	repo := &memoryCacheRepo{getErr: assert.AnError}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	var value []string
	hit, err := svc.Remember(context.Background(), "k", 0, &value, func(context.Context) error {
		value = []string{"loaded"}
		return nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"loaded"}, value)
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(nil, nil, time.Minute, nil, false)
	assert.False(t, svc.Enabled())

	var nilSvc *CacheService
	assert.NoError(t, nilSvc.Invalidate(context.Background(), "timetable:*"))
	hit, err := nilSvc.Get(context.Background(), "k", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := &memoryCacheRepo{}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	require.NoError(t, svc.Set(context.Background(), "timetable:c1:all", []int{1}, 0))
	require.NoError(t, svc.Set(context.Background(), "timetable:c2:all", []int{2}, 0))

	require.NoError(t, svc.Invalidate(context.Background(), timetableCachePattern("c1")))
	assert.NotContains(t, repo.store, "timetable:c1:all")
	assert.Contains(t, repo.store, "timetable:c2:all")
}
