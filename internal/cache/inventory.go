package cache

import (
	"context"
	"fmt"
	"time"

	"scrawl/internal/models"
)

const (
	UserKeyPrefix    = "user:%d"
	PostKeyPrefix    = "post:%d"
	CommentKeyPrefix = "comment:%d"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func CommentKey(commentID uint) string {
	return fmt.Sprintf(CommentKeyPrefix, commentID)
}

// TargetKey maps a votable target onto its cache key.
func TargetKey(targetType models.TargetType, id uint) string {
	if targetType == models.TargetComment {
		return CommentKey(id)
	}
	return PostKey(id)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateTarget drops the cached copy of a voted-on entity after its
// counters change.
func InvalidateTarget(ctx context.Context, targetType models.TargetType, id uint) {
	Invalidate(ctx, TargetKey(targetType, id))
}
