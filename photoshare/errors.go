package photoshare

import "errors"

var (
	ErrStorage  = errors.New("storage_error")
	ErrNotFound = errors.New("not_found")
)

// Validation errors are shown to the user; nothing is mutated when one is returned.
var (
	ErrImageRequired   = errors.New("please select an image to upload")
	ErrImageTooLarge   = errors.New("the selected image is too large")
	ErrNotAnImage      = errors.New("the selected file is not an image")
	ErrCaptionRequired = errors.New("please add a caption to your post")
	ErrCaptionTooLong  = errors.New("caption must be at most 500 characters")

	ErrUsernameLength = errors.New("username must be between 3 and 20 characters")
	ErrUsernameChars  = errors.New("username may only contain letters, numbers, dots and underscores")
	ErrPasswordLength = errors.New("password must be at least 6 characters")
	ErrCodeFormat     = errors.New("enter the 6-digit code from your authenticator app")
	ErrCodeRejected   = errors.New("invalid verification code. Please try again")
	ErrNoChallenge    = errors.New("no pending verification")
	ErrNotLoggedIn    = errors.New("login required")
)
