package photoshare_test

import (
	"testing"
	"time"

	"insta-pics/photoshare"

	"github.com/stretchr/testify/assert"
)

func TestRelativeAge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"future", -time.Minute, "just now"},
		{"zero", 0, "just now"},
		{"59 seconds", 59 * time.Second, "just now"},
		{"one minute", time.Minute, "1m ago"},
		{"59 minutes", 59*time.Minute + 59*time.Second, "59m ago"},
		{"one hour", time.Hour, "1h ago"},
		{"23 hours", 23*time.Hour + 59*time.Minute, "23h ago"},
		{"one day", 24 * time.Hour, "1d ago"},
		{"a year", 365 * 24 * time.Hour, "365d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, photoshare.RelativeAge(now.Add(-tt.ago), now))
		})
	}
}

func TestLikesLabel(t *testing.T) {
	assert.Equal(t, "0 likes", photoshare.LikesLabel(0))
	assert.Equal(t, "1 like", photoshare.LikesLabel(1))
	assert.Equal(t, "42 likes", photoshare.LikesLabel(42))
}

func TestIsLikedBy(t *testing.T) {
	post := photoshare.Post{ID: "1", LikedBy: []string{"alice"}}
	assert.True(t, photoshare.IsLikedBy(post, photoshare.Session{Username: "alice", IsLoggedIn: true}))
	assert.False(t, photoshare.IsLikedBy(post, photoshare.Session{Username: "bob", IsLoggedIn: true}))
	assert.False(t, photoshare.IsLikedBy(post, photoshare.Session{Username: "alice"}))
}
