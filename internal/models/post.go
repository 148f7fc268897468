package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Post is a blog entry. Upvotes and Downvotes are denormalized from the votes
// table and mutated exclusively by the vote engine, never by handlers.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author"`
	Upvotes   int            `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int            `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
