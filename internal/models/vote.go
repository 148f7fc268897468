package models

import "time"

// TargetType identifies which kind of entity a vote is attached to.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// ParseTargetType maps a route parameter onto a TargetType.
// Accepts the capitalized form the legacy clients send ("Post"/"Comment").
func ParseTargetType(s string) (TargetType, bool) {
	switch s {
	case "post", "Post":
		return TargetPost, true
	case "comment", "Comment":
		return TargetComment, true
	}
	return "", false
}

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// ParseVoteType maps a route parameter onto a VoteType.
func ParseVoteType(s string) (VoteType, bool) {
	switch VoteType(s) {
	case VoteUp, VoteDown:
		return VoteType(s), true
	}
	return "", false
}

// Vote is one user's current stance on one target. The composite unique index
// is the backstop for the one-vote-per-user-per-target invariant: concurrent
// duplicate inserts lose at the store level, not in application logic.
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_votes_user_target" json:"user_id"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_votes_user_target;index:idx_votes_target" json:"target_id"`
	TargetType TargetType `gorm:"type:varchar(16);not null;uniqueIndex:idx_votes_user_target;index:idx_votes_target" json:"target_type"`
	VoteType   VoteType   `gorm:"type:varchar(16);not null" json:"vote_type"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// VoteCounts is a snapshot of a target's denormalized counters.
type VoteCounts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}
