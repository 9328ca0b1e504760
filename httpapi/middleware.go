package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"insta-pics/photoshare"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	deviceCookie = "instapics_device"
	deviceHeader = "Instapics-Device-Id"
)

type ctxKey int

const (
	deviceKey ctxKey = iota
	storeKey
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// observe logs every request and records it in the request metrics.
func (h *HTTPHandler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		route := routeName(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		h.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", duration),
			slog.String("device", deviceFrom(r.Context())),
		)
	})
}

// identify resolves the device id from the header or cookie, issuing a new
// one when neither carries a valid id, and leases the device's store for the
// rest of the request.
func (h *HTTPHandler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := r.Header.Get(deviceHeader)
		if _, err := uuid.Parse(device); err != nil {
			device = ""
			if c, err := r.Cookie(deviceCookie); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					device = c.Value
				}
			}
		}
		if device == "" {
			device = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     deviceCookie,
				Value:    device,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(deviceHeader, device)

		ctx := context.WithValue(r.Context(), deviceKey, device)
		store, release := h.registry.Acquire(ctx, device)
		defer release()
		ctx = context.WithValue(ctx, storeKey, store)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceFrom(ctx context.Context) string {
	device, _ := ctx.Value(deviceKey).(string)
	return device
}

func storeFrom(ctx context.Context) *photoshare.Store {
	store, _ := ctx.Value(storeKey).(*photoshare.Store)
	return store
}

// requireSession sends logged-out visitors to the login page.
func requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !storeFrom(r.Context()).Session().IsLoggedIn {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// requireAPISession answers 401 instead of redirecting.
func requireAPISession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !storeFrom(r.Context()).Session().IsLoggedIn {
			writeError(w, http.StatusUnauthorized, photoshare.ErrNotLoggedIn.Error())
			return
		}
		next(w, r)
	}
}
