package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reply on a post. Like posts, comments carry denormalized vote
// counters owned by the vote engine.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	Upvotes   int            `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int            `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
