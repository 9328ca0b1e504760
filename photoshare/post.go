package photoshare

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

type postRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Image     string    `json:"image"`
	Caption   string    `json:"caption"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"likedBy"`
}

func (p Post) MarshalJSON() ([]byte, error) {
	likedBy := p.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	return json.Marshal(postRecord{
		ID:        p.ID,
		Username:  p.Username,
		Image:     p.Image,
		Caption:   p.Caption,
		Timestamp: p.Timestamp.UTC(),
		Likes:     len(likedBy),
		LikedBy:   likedBy,
	})
}

// UnmarshalJSON ignores the stored like count and rebuilds LikedBy without
// duplicates, so Likes cannot disagree with it.
func (p *Post) UnmarshalJSON(data []byte) error {
	var rec postRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	likedBy := make([]string, 0, len(rec.LikedBy))
	for _, name := range rec.LikedBy {
		if name != "" && !slices.Contains(likedBy, name) {
			likedBy = append(likedBy, name)
		}
	}
	*p = Post{
		ID:        rec.ID,
		Username:  rec.Username,
		Image:     rec.Image,
		Caption:   rec.Caption,
		Timestamp: rec.Timestamp,
		LikedBy:   likedBy,
	}
	return nil
}

func (p Post) clone() Post {
	p.LikedBy = slices.Clone(p.LikedBy)
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	return p
}

func (s *Session) UnmarshalJSON(data []byte) error {
	type plain Session
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Username = strings.TrimSpace(raw.Username)
	if !raw.IsLoggedIn || raw.Username == "" {
		raw = plain{}
	}
	*s = Session(raw)
	return nil
}
