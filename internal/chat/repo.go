package chat

import (
	"context"

	"gorm.io/gorm"
)

// Repo is the primary durable store. It is the single source of truth for
// chat history; the secondary document store only mirrors it.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) InsertExchange(ctx context.Context, e *Exchange) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// ListExchanges returns a user's exchanges newest first.
func (r *Repo) ListExchanges(ctx context.Context, userID uint64) ([]Exchange, error) {
	var out []Exchange
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteExchanges removes every row for the user in one statement, so a
// concurrent reader never observes a partially deleted history.
func (r *Repo) DeleteExchanges(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&Exchange{}).Error
}
