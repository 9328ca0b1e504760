package photoshare

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

const keyPrefix = "instapics:v1:"

func PostsKey(device string) string   { return keyPrefix + device + ":posts" }
func SessionKey(device string) string { return keyPrefix + device + ":session" }

// Store owns one device's post list and session and mirrors both into
// Storage after every mutation. Mutations made while logged out are no-ops.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	device  string
	posts   []Post
	session Session
	lastID  int64

	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open hydrates the store for device from storage. Storage failures never
// surface: the store starts from the seed posts and a logged-out session.
func Open(ctx context.Context, storage Storage, device string, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		device:  device,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("device", device))

	posts, err := s.loadPosts(ctx)
	switch {
	case err == nil:
		s.posts = posts
	case errors.Is(err, ErrNotFound):
		s.posts = SeedPosts(s.now())
		s.savePosts(ctx)
	default:
		s.logger.ErrorContext(ctx, "load posts", slog.String("error", err.Error()))
		s.posts = SeedPosts(s.now())
	}
	for _, p := range s.posts {
		if id, err := strconv.ParseInt(p.ID, 10, 64); err == nil && id > s.lastID {
			s.lastID = id
		}
	}

	session, err := s.loadSession(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.ErrorContext(ctx, "load session", slog.String("error", err.Error()))
	}
	s.session = session
	return s
}

func (s *Store) loadPosts(ctx context.Context) ([]Post, error) {
	raw, err := s.storage.Load(ctx, PostsKey(s.device))
	if err != nil {
		return nil, err
	}
	var posts []Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable posts", slog.String("error", err.Error()))
		return nil, ErrNotFound
	}
	if posts == nil {
		s.logger.WarnContext(ctx, "discarding null posts entry")
		return nil, ErrNotFound
	}
	return posts, nil
}

func (s *Store) loadSession(ctx context.Context) (Session, error) {
	raw, err := s.storage.Load(ctx, SessionKey(s.device))
	if err != nil {
		return Session{}, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable session", slog.String("error", err.Error()))
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *Store) savePosts(ctx context.Context) {
	raw, err := json.Marshal(s.posts)
	if err != nil {
		s.logger.ErrorContext(ctx, "encode posts", slog.String("error", err.Error()))
		return
	}
	if err := s.storage.Save(ctx, PostsKey(s.device), raw); err != nil {
		s.logger.ErrorContext(ctx, "save posts", slog.String("error", err.Error()))
	}
}

func (s *Store) saveSession(ctx context.Context) {
	raw, err := json.Marshal(s.session)
	if err != nil {
		s.logger.ErrorContext(ctx, "encode session", slog.String("error", err.Error()))
		return
	}
	if err := s.storage.Save(ctx, SessionKey(s.device), raw); err != nil {
		s.logger.ErrorContext(ctx, "save session", slog.String("error", err.Error()))
	}
}

func (s *Store) Device() string {
	return s.device
}

// Posts returns a copy of the post list, newest first.
func (s *Store) Posts() []Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]Post, len(s.posts))
	for i, p := range s.posts {
		posts[i] = p.clone()
	}
	return posts
}

func (s *Store) Post(postID string) (Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(postID)
	if idx < 0 {
		return Post{}, false
	}
	return s.posts[idx].clone(), true
}

func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Store) indexOf(postID string) int {
	return slices.IndexFunc(s.posts, func(p Post) bool { return p.ID == postID })
}

// nextID derives ids from the clock in milliseconds, bumped so that two posts
// created within the same millisecond still get increasing ids.
func (s *Store) nextID(now time.Time) string {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// AddPost prepends a new post authored by the session user. The caption is
// stored as given; validating it is the caller's job.
func (s *Store) AddPost(ctx context.Context, image string, caption string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.IsLoggedIn {
		return Post{}, false
	}

	now := s.now().UTC()
	post := Post{
		ID:        s.nextID(now),
		Username:  s.session.Username,
		Image:     image,
		Caption:   caption,
		Timestamp: now,
		LikedBy:   []string{},
	}
	s.posts = slices.Insert(s.posts, 0, post)
	s.savePosts(ctx)
	s.logger.InfoContext(ctx, "post added", slog.String("post_id", post.ID), slog.String("username", post.Username))
	return post.clone(), true
}

// LikePost toggles the session user's like on postID and reports whether the
// user likes the post afterwards. ok is false for unknown ids and logged-out
// sessions, which leave everything untouched.
func (s *Store) LikePost(ctx context.Context, postID string) (liked bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.IsLoggedIn {
		return false, false
	}
	idx := s.indexOf(postID)
	if idx < 0 {
		return false, false
	}

	post := s.posts[idx].clone()
	username := s.session.Username
	if i := slices.Index(post.LikedBy, username); i >= 0 {
		post.LikedBy = slices.Delete(post.LikedBy, i, i+1)
	} else {
		post.LikedBy = append(post.LikedBy, username)
		liked = true
	}
	s.posts[idx] = post
	s.savePosts(ctx)
	return liked, true
}

// Login starts a session for the trimmed username. There is no credential
// check here. A blank name is ignored.
func (s *Store) Login(ctx context.Context, username string) bool {
	username = strings.TrimSpace(username)
	if username == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{Username: username, IsLoggedIn: true}
	s.saveSession(ctx)
	s.logger.InfoContext(ctx, "logged in", slog.String("username", username))
	return true
}

func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
	s.saveSession(ctx)
}
