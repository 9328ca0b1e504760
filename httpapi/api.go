package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"insta-pics/photoshare"

	"github.com/gorilla/mux"
)

type SessionResponse struct {
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}

type CreateSessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChallengeResponse struct {
	SecondFactor bool `json:"secondFactor"`
}

type VerifySessionRequest struct {
	Code string `json:"code"`
}

type CreatePostRequest struct {
	Image   string `json:"image"`
	Caption string `json:"caption"`
}

type PostResponse struct {
	PostId    string   `json:"id"`
	Username  string   `json:"username"`
	Image     string   `json:"image"`
	Caption   string   `json:"caption"`
	Timestamp string   `json:"timestamp"`
	Likes     int      `json:"likes"`
	LikedBy   []string `json:"likedBy"`
	LikedByMe bool     `json:"likedByMe"`
	Age       string   `json:"age"`
}

type GetPostsResponse struct {
	Posts []PostResponse `json:"posts"`
}

type ProfileResponse struct {
	Username   string         `json:"username"`
	PostCount  int            `json:"postCount"`
	TotalLikes int            `json:"totalLikes"`
	Following  int            `json:"following"`
	IsOwn      bool           `json:"isOwn"`
	Posts      []PostResponse `json:"posts"`
}

func sessionResponse(session photoshare.Session) SessionResponse {
	return SessionResponse{Username: session.Username, IsLoggedIn: session.IsLoggedIn}
}

func postResponse(post photoshare.Post, session photoshare.Session, now time.Time) PostResponse {
	return PostResponse{
		PostId:    post.ID,
		Username:  post.Username,
		Image:     post.Image,
		Caption:   post.Caption,
		Timestamp: post.Timestamp.UTC().Format(time.RFC3339Nano),
		Likes:     post.Likes(),
		LikedBy:   post.LikedBy,
		LikedByMe: photoshare.IsLikedBy(post, session),
		Age:       photoshare.RelativeAge(post.Timestamp, now),
	}
}

func postsResponse(posts []photoshare.Post, session photoshare.Session) []PostResponse {
	now := time.Now()
	resp := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		resp = append(resp, postResponse(post, session, now))
	}
	return resp
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse(storeFrom(r.Context()).Session()))
}

func (h *HTTPHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	store := storeFrom(ctx)
	challenge, err := h.auth.Begin(ctx, store, photoshare.Credentials{Username: body.Username, Password: body.Password})
	if err != nil {
		loginsTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if challenge != nil {
		loginsTotal.WithLabelValues("challenged").Inc()
		h.challenges.Put(deviceFrom(ctx), *challenge)
		writeJSON(w, http.StatusAccepted, ChallengeResponse{SecondFactor: true})
		return
	}
	loginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, sessionResponse(store.Session()))
}

func (h *HTTPHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := deviceFrom(ctx)
	var body VerifySessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	challenge, ok := h.challenges.Get(device)
	if !ok {
		writeError(w, http.StatusConflict, photoshare.ErrNoChallenge.Error())
		return
	}
	store := storeFrom(ctx)
	err := h.auth.Verify(ctx, store, challenge, body.Code)
	switch {
	case err == nil:
		loginsTotal.WithLabelValues("success").Inc()
		h.challenges.Delete(device)
		writeJSON(w, http.StatusOK, sessionResponse(store.Session()))
	case errors.Is(err, photoshare.ErrCodeRejected):
		loginsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnauthorized, err.Error())
	case isCancelled(err):
		return
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := storeFrom(ctx)
	store.Logout(ctx)
	h.challenges.Delete(deviceFrom(ctx))
	writeJSON(w, http.StatusOK, sessionResponse(store.Session()))
}

func (h *HTTPHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r.Context())
	writeJSON(w, http.StatusOK, GetPostsResponse{Posts: postsResponse(store.Posts(), store.Session())})
}

func (h *HTTPHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	store := storeFrom(ctx)
	post, err := h.uploader.Submit(ctx, store, photoshare.UploadDraft{Image: body.Image, Caption: body.Caption})
	if isCancelled(err) {
		return
	}
	if errors.Is(err, photoshare.ErrNotLoggedIn) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	postsAddedTotal.Inc()
	writeJSON(w, http.StatusCreated, postResponse(post, store.Session(), time.Now()))
}

func (h *HTTPHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID := mux.Vars(r)["postId"]
	store := storeFrom(ctx)
	liked, ok := store.LikePost(ctx, postID)
	if !ok {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	recordLike(liked)
	post, _ := store.Post(postID)
	writeJSON(w, http.StatusOK, postResponse(post, store.Session(), time.Now()))
}

func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r.Context())
	view := photoshare.Profile(store, mux.Vars(r)["username"])
	writeJSON(w, http.StatusOK, ProfileResponse{
		Username:   view.Username,
		PostCount:  view.PostCount,
		TotalLikes: view.TotalLikes,
		Following:  view.Following,
		IsOwn:      view.IsOwn,
		Posts:      postsResponse(view.Posts, store.Session()),
	})
}
