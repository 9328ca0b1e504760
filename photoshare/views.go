package photoshare

type FeedView struct {
	Posts []Post
	Empty bool
}

func Feed(store *Store) FeedView {
	posts := store.Posts()
	return FeedView{Posts: posts, Empty: len(posts) == 0}
}

type ProfileView struct {
	Username   string
	Posts      []Post
	PostCount  int
	TotalLikes int
	// Following is not tracked and always renders as zero.
	Following int
	IsOwn     bool
}

// Profile projects the store's posts onto one author. Unknown authors get an
// empty profile.
func Profile(store *Store, username string) ProfileView {
	session := store.Session()
	view := ProfileView{
		Username: username,
		Posts:    []Post{},
		IsOwn:    session.IsLoggedIn && session.Username == username,
	}
	for _, p := range store.Posts() {
		if p.Username != username {
			continue
		}
		view.Posts = append(view.Posts, p)
		view.TotalLikes += p.Likes()
	}
	view.PostCount = len(view.Posts)
	return view
}
