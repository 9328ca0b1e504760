package photoshare

import (
	"strconv"
	"time"

	"golang.org/x/exp/slices"
)

// IsLikedBy reports whether the session user is in the post's liked-by list.
func IsLikedBy(post Post, session Session) bool {
	if !session.IsLoggedIn {
		return false
	}
	return slices.Contains(post.LikedBy, session.Username)
}

// RelativeAge renders how long ago ts was, using whole minutes, hours or days.
func RelativeAge(ts time.Time, now time.Time) string {
	minutes := int64(now.Sub(ts) / time.Minute)
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return strconv.FormatInt(minutes, 10) + "m ago"
	case minutes < 24*60:
		return strconv.FormatInt(minutes/60, 10) + "h ago"
	default:
		return strconv.FormatInt(minutes/(24*60), 10) + "d ago"
	}
}

func LikesLabel(n int) string {
	if n == 1 {
		return "1 like"
	}
	return strconv.Itoa(n) + " likes"
}
