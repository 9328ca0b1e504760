package httpapi

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"insta-pics/photoshare"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed static
var staticFiles embed.FS

type Deps struct {
	Registry       *photoshare.Registry
	Authenticator  photoshare.Authenticator
	Uploader       photoshare.Uploader
	Challenges     *photoshare.Challenges
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type HTTPHandler struct {
	registry       *photoshare.Registry
	auth           photoshare.Authenticator
	uploader       photoshare.Uploader
	challenges     *photoshare.Challenges
	maxUploadBytes int64
	logger         *slog.Logger
	pages          *pages
}

func NewServer(addr string, deps Deps) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(deps),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
}

func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handler := &HTTPHandler{
		registry:       deps.Registry,
		auth:           deps.Authenticator,
		uploader:       deps.Uploader,
		challenges:     deps.Challenges,
		maxUploadBytes: deps.MaxUploadBytes,
		logger:         logger,
		pages:          loadPages(),
	}

	r := mux.NewRouter()
	r.Use(handler.observe)

	static, _ := fs.Sub(staticFiles, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.HandleFunc("/maintenance/ping", handler.CheckIsReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	app := r.NewRoute().Subrouter()
	app.Use(handler.identify)

	app.HandleFunc("/", handler.Root).Methods(http.MethodGet)
	app.HandleFunc("/login", handler.LoginPage).Methods(http.MethodGet)
	app.HandleFunc("/login", handler.Login).Methods(http.MethodPost)
	app.HandleFunc("/verify", handler.VerifyPage).Methods(http.MethodGet)
	app.HandleFunc("/verify", handler.Verify).Methods(http.MethodPost)
	app.HandleFunc("/verify/resend", handler.ResendCode).Methods(http.MethodPost)
	app.HandleFunc("/logout", handler.Logout).Methods(http.MethodPost)
	app.HandleFunc("/feed", requireSession(handler.Feed)).Methods(http.MethodGet)
	app.HandleFunc("/upload", requireSession(handler.UploadPage)).Methods(http.MethodGet)
	app.HandleFunc("/upload", requireSession(handler.Upload)).Methods(http.MethodPost)
	app.HandleFunc("/profile/{username}", requireSession(handler.Profile)).Methods(http.MethodGet)
	app.HandleFunc("/posts/{postId}/like", requireSession(handler.LikePost)).Methods(http.MethodPost)

	app.HandleFunc("/api/v1/session", handler.GetSession).Methods(http.MethodGet)
	app.HandleFunc("/api/v1/session", handler.CreateSession).Methods(http.MethodPost)
	app.HandleFunc("/api/v1/session", handler.DeleteSession).Methods(http.MethodDelete)
	app.HandleFunc("/api/v1/session/verify", handler.VerifySession).Methods(http.MethodPost)
	app.HandleFunc("/api/v1/posts", requireAPISession(handler.GetPosts)).Methods(http.MethodGet)
	app.HandleFunc("/api/v1/posts", requireAPISession(handler.CreatePost)).Methods(http.MethodPost)
	app.HandleFunc("/api/v1/posts/{postId}/like", requireAPISession(handler.ToggleLike)).Methods(http.MethodPost)
	app.HandleFunc("/api/v1/users/{username}/profile", requireAPISession(handler.GetProfile)).Methods(http.MethodGet)

	r.NotFoundHandler = handler.observe(http.HandlerFunc(handler.NotFound))
	return r
}

func (h *HTTPHandler) CheckIsReady(w http.ResponseWriter, r *http.Request) {
	if !h.registry.IsReady(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
