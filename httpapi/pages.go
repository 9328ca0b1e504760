package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"insta-pics/photoshare"

	"github.com/gorilla/mux"
)

type loginForm struct {
	Username string
}

type uploadForm struct {
	Caption       string
	CaptionLength int
	MaxCaption    int
}

func newUploadForm(caption string) uploadForm {
	return uploadForm{
		Caption:       caption,
		CaptionLength: utf8.RuneCountInString(caption),
		MaxCaption:    photoshare.MaxCaptionLength,
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// localTarget keeps post-action redirects on this site.
func localTarget(next string, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

func (h *HTTPHandler) Root(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/feed")
}

func (h *HTTPHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", pageData{})
}

func (h *HTTPHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if storeFrom(r.Context()).Session().IsLoggedIn {
		redirect(w, r, "/feed")
		return
	}
	h.render(w, r, http.StatusOK, "login", pageData{Data: loginForm{}})
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := storeFrom(ctx)
	if store.Session().IsLoggedIn {
		redirect(w, r, "/feed")
		return
	}
	creds := photoshare.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	challenge, err := h.auth.Begin(ctx, store, creds)
	if err != nil {
		loginsTotal.WithLabelValues("invalid").Inc()
		h.render(w, r, http.StatusUnprocessableEntity, "login", pageData{
			Error: err.Error(),
			Data:  loginForm{Username: strings.TrimSpace(creds.Username)},
		})
		return
	}
	if challenge != nil {
		loginsTotal.WithLabelValues("challenged").Inc()
		h.challenges.Put(deviceFrom(ctx), *challenge)
		redirect(w, r, "/verify")
		return
	}
	loginsTotal.WithLabelValues("success").Inc()
	redirect(w, r, "/feed")
}

func (h *HTTPHandler) VerifyPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.challenges.Get(deviceFrom(r.Context())); !ok {
		redirect(w, r, "/login")
		return
	}
	h.render(w, r, http.StatusOK, "verify", pageData{})
}

func (h *HTTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := deviceFrom(ctx)
	challenge, ok := h.challenges.Get(device)
	if !ok {
		redirect(w, r, "/login")
		return
	}
	err := h.auth.Verify(ctx, storeFrom(ctx), challenge, strings.TrimSpace(r.PostFormValue("code")))
	switch {
	case err == nil:
		loginsTotal.WithLabelValues("success").Inc()
		h.challenges.Delete(device)
		redirect(w, r, "/feed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.InfoContext(ctx, "verification abandoned", slog.String("device", device))
	default:
		if errors.Is(err, photoshare.ErrCodeRejected) {
			loginsTotal.WithLabelValues("rejected").Inc()
		}
		h.render(w, r, http.StatusUnprocessableEntity, "verify", pageData{Error: err.Error()})
	}
}

func (h *HTTPHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	device := deviceFrom(r.Context())
	challenge, ok := h.challenges.Get(device)
	if !ok {
		redirect(w, r, "/login")
		return
	}
	h.challenges.Put(device, *challenge)
	h.render(w, r, http.StatusOK, "verify", pageData{Notice: "New verification code sent to your authenticator app!"})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeFrom(ctx).Logout(ctx)
	h.challenges.Delete(deviceFrom(ctx))
	redirect(w, r, "/login")
}

func (h *HTTPHandler) Feed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "feed", pageData{
		Active: "feed",
		Data:   photoshare.Feed(storeFrom(r.Context())),
	})
}

func (h *HTTPHandler) UploadPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "upload", pageData{Active: "upload", Data: newUploadForm("")})
}

func (h *HTTPHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)

	draft, err := h.readUploadForm(r)
	if err == nil {
		var post photoshare.Post
		post, err = h.uploader.Submit(ctx, storeFrom(ctx), draft)
		if err == nil {
			postsAddedTotal.Inc()
			h.logger.InfoContext(ctx, "upload published", slog.String("post_id", post.ID))
			redirect(w, r, "/feed")
			return
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.InfoContext(ctx, "upload abandoned", slog.String("device", deviceFrom(ctx)))
		return
	}
	if errors.Is(err, photoshare.ErrNotLoggedIn) {
		redirect(w, r, "/login")
		return
	}
	h.render(w, r, http.StatusUnprocessableEntity, "upload", pageData{
		Active: "upload",
		Error:  err.Error(),
		Data:   newUploadForm(draft.Caption),
	})
}

// readUploadForm turns the multipart form into a draft. The caption is kept
// even when the image is rejected so the form can be redisplayed.
func (h *HTTPHandler) readUploadForm(r *http.Request) (photoshare.UploadDraft, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return photoshare.UploadDraft{}, photoshare.ErrImageTooLarge
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return photoshare.UploadDraft{}, err
		}
	}
	draft := photoshare.UploadDraft{Caption: r.FormValue("caption")}
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return draft, photoshare.ErrImageRequired
	}
	if err != nil {
		return draft, err
	}
	defer file.Close()
	draft.Image, err = photoshare.EncodeImage(file, h.maxUploadBytes)
	if err != nil {
		return draft, err
	}
	return draft, nil
}

func (h *HTTPHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	view := photoshare.Profile(storeFrom(r.Context()), username)
	active := ""
	if view.IsOwn {
		active = "profile"
	}
	h.render(w, r, http.StatusOK, "profile", pageData{Active: active, Data: view})
}

func (h *HTTPHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID := mux.Vars(r)["postId"]
	if liked, ok := storeFrom(ctx).LikePost(ctx, postID); ok {
		recordLike(liked)
	}
	redirect(w, r, localTarget(r.PostFormValue("next"), "/feed"))
}
