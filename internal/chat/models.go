package chat

import "time"

// Exchange is one stored message/response pair. Rows are created once per
// successful generation, never mutated, and only deleted in bulk per user.
type Exchange struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Response  string    `gorm:"type:text;not null" json:"response"`
	Provider  string    `gorm:"type:varchar(32);not null" json:"provider"`
	CreatedAt time.Time `json:"timestamp"`
}

func (Exchange) TableName() string { return "chat_exchanges" }
