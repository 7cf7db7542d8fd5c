package video

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	videos map[string]*Video
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		videos: make(map[string]*Video),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, video *Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if video.ID == "" {
		video.ID = uuid.New().String()
	}
	stored := *video
	r.videos[video.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	video, exists := r.videos[id]
	if !exists {
		return nil, nil
	}
	result := *video
	return &result, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	videos := []*Video{}
	for _, video := range r.videos {
		if video.UserID == userID {
			result := *video
			videos = append(videos, &result)
		}
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt != videos[j].CreatedAt {
			return videos[i].CreatedAt < videos[j].CreatedAt
		}
		return videos[i].ID < videos[j].ID
	})
	return videos, nil
}

func (r *MemoryRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, video := range r.videos {
		if video.UserID == userID {
			count++
		}
	}
	return count, nil
}
