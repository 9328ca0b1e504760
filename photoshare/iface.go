package photoshare

import (
	"context"
	"time"
)

const MaxCaptionLength = 500

type Post struct {
	ID        string
	Username  string
	Image     string
	Caption   string
	Timestamp time.Time
	LikedBy   []string
}

// Likes is always the size of LikedBy.
func (p Post) Likes() int {
	return len(p.LikedBy)
}

type Session struct {
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}

// Storage is the durable key-value mirror of a Store. Load returns ErrNotFound
// for absent keys.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	IsReady(ctx context.Context) bool
}
