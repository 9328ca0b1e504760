package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"insta-pics/photoshare"
)

//go:embed templates
var templateFiles embed.FS

var pageNames = []string{"login", "verify", "feed", "upload", "profile", "notfound"}

type pages struct {
	byName map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"age":      photoshare.RelativeAge,
	"likes":    photoshare.LikesLabel,
	"liked":    photoshare.IsLikedBy,
	"imgsrc":   imageSource,
	"excerpt":  excerpt,
	"postCard": postCard,
}

type postCardData struct {
	Post    photoshare.Post
	Session photoshare.Session
	Now     time.Time
	Next    string
}

func postCard(post photoshare.Post, page pageData, next string) postCardData {
	return postCardData{Post: post, Session: page.Session, Now: page.Now, Next: next}
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// imageSource lets embedded uploads and bundled assets through html/template's
// URL filter; anything else renders as an empty image.
func imageSource(ref string) template.URL {
	if strings.HasPrefix(ref, "data:image/") || strings.HasPrefix(ref, "/static/") {
		return template.URL(ref)
	}
	return ""
}

func loadPages() *pages {
	p := &pages{byName: make(map[string]*template.Template)}
	for _, name := range pageNames {
		p.byName[name] = template.Must(template.New(name).Funcs(templateFuncs).ParseFS(
			templateFiles, "templates/layout.html", "templates/"+name+".html",
		))
	}
	return p
}

type pageData struct {
	Session photoshare.Session
	Active  string
	Error   string
	Notice  string
	Now     time.Time
	Data    any
}

func (h *HTTPHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	data.Now = time.Now()
	if store := storeFrom(r.Context()); store != nil {
		data.Session = store.Session()
	}
	var buf bytes.Buffer
	if err := h.pages.byName[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(r.Context(), "render page", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	rawResponse, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(rawResponse)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
