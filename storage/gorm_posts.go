package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/livewall/models"
)

// GormPosts stores posts in MySQL through GORM.
type GormPosts struct {
	db *gorm.DB
}

// NewGormPosts creates a PostStore on an initialized gorm DB.
func NewGormPosts(db *gorm.DB) *GormPosts {
	return &GormPosts{db: db}
}

func (s *GormPosts) RecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return posts, nil
}

func (s *GormPosts) CreatePost(ctx context.Context, draft models.Draft) (models.Post, error) {
	if draft.Content == "" {
		return models.Post{}, ErrEmptyContent
	}
	post := models.Post{
		Content:  draft.Content,
		ImageURL: draft.ImageURL,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return models.Post{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return post, nil
}
