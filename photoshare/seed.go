package photoshare

import "time"

// SeedPosts returns the posts a store starts with when nothing was persisted,
// aged 2, 4 and 6 hours before now.
func SeedPosts(now time.Time) []Post {
	now = now.UTC()
	return []Post{
		{
			ID:        "1",
			Username:  "naturelovers",
			Image:     "/static/demo-sunset.svg",
			Caption:   "Beautiful sunset at the beach tonight! 🌅 Nothing beats golden hour by the ocean.",
			Timestamp: now.Add(-2 * time.Hour),
			LikedBy:   []string{},
		},
		{
			ID:        "2",
			Username:  "puppylife",
			Image:     "/static/demo-puppy.svg",
			Caption:   "This little guy made my day! 🐕 Playing fetch in the park never gets old.",
			Timestamp: now.Add(-4 * time.Hour),
			LikedBy:   []string{},
		},
		{
			ID:        "3",
			Username:  "coffeetime",
			Image:     "/static/demo-coffee.svg",
			Caption:   "Perfect latte art to start my morning ☕️ Who else needs their daily caffeine fix?",
			Timestamp: now.Add(-6 * time.Hour),
			LikedBy:   []string{},
		},
	}
}
