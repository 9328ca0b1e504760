package photoshare

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

type UploadDraft struct {
	Image   string
	Caption string
}

func (d UploadDraft) Validate() error {
	if d.Image == "" {
		return ErrImageRequired
	}
	caption := strings.TrimSpace(d.Caption)
	if caption == "" {
		return ErrCaptionRequired
	}
	if utf8.RuneCountInString(caption) > MaxCaptionLength {
		return ErrCaptionTooLong
	}
	return nil
}

// EncodeImage reads an uploaded file into a data URI. The content type is
// sniffed from the bytes, not taken from the client.
func EncodeImage(r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrImageRequired
	}
	if int64(len(data)) > maxBytes {
		return "", ErrImageTooLarge
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", ErrNotAnImage
	}
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

type Uploader struct {
	// Latency is a simulated network delay before the post is published.
	Latency time.Duration
}

// Submit validates the draft, waits out the latency and publishes the post
// exactly once. If ctx ends during the wait nothing is published. A session
// that ended before the post could be added yields ErrNotLoggedIn.
func (u Uploader) Submit(ctx context.Context, store *Store, draft UploadDraft) (Post, error) {
	if err := draft.Validate(); err != nil {
		return Post{}, err
	}
	if err := wait(ctx, u.Latency); err != nil {
		return Post{}, err
	}
	post, ok := store.AddPost(ctx, draft.Image, strings.TrimSpace(draft.Caption))
	if !ok {
		return Post{}, ErrNotLoggedIn
	}
	return post, nil
}
