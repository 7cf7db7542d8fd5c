package video

import "context"

type Config struct {
	MaxFileSize int64   `mapstructure:"max_file_size"`
	MinDuration float64 `mapstructure:"min_duration"`
	MaxDuration float64 `mapstructure:"max_duration"`
}

// Video is one stored media file. Trims produce new rows; rows are never
// updated in place.
type Video struct {
	ID           string  `json:"id"`
	UserID       string  `json:"userId"`
	Path         string  `json:"path"`
	Name         string  `json:"name"`
	OriginalName string  `json:"originalName"`
	Size         int64   `json:"size"`
	Duration     float64 `json:"duration"`
	CreatedAt    int64   `json:"createdAt"`
}

type VideoRepository interface {
	// Create assigns the ID when empty.
	Create(ctx context.Context, video *Video) error
	// GetByID returns nil, nil when no video has the id.
	GetByID(ctx context.Context, id string) (*Video, error)
	ListByUser(ctx context.Context, userID string) ([]*Video, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}
