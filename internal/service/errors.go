package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid         = errors.New("Invalid request parameters")
	ErrInvalidObjectID      = errors.New("Invalid id")
	ErrInvalidFeedType      = errors.New("Invalid feed type")
	ErrTweetTextRequired    = errors.New("Tweet text is required")
	ErrTweetTooLong         = errors.New("Tweet cannot exceed 280 characters")
	ErrTweetMediaInvalid    = errors.New("Invalid media attachment")
	ErrTweetMediaLimit      = errors.New("A tweet can have at most 4 media items")
	ErrTweetNotFound        = errors.New("Tweet not found")
	ErrParentTweetNotFound  = errors.New("Parent tweet not found")
	ErrQuotedTweetNotFound  = errors.New("Quoted tweet not found")
	ErrTweetDeleteForbidden = errors.New("Not authorized to delete this tweet")
	ErrUserNotFound         = errors.New("User not found")
	ErrUserFollowSelf       = errors.New("You cannot follow yourself")
	ErrEmailTaken           = errors.New("Email already registered")
	ErrUsernameTaken        = errors.New("Username already taken")
	ErrUsernameInvalid      = errors.New("Username can only contain letters, numbers and underscores")
	ErrInvalidCredentials   = errors.New("Invalid credentials")
	ErrGoogleAccount        = errors.New("This account uses Google Sign-In. Please sign in with Google.")
	ErrGoogleTokenInvalid   = errors.New("Invalid Google token")
	ErrNotificationNotFound = errors.New("Notification not found")
	ErrSearchQueryRequired  = errors.New("Search query is required")
	ErrFileNotSupported     = errors.New("Unsupported file type")
	ErrFileRequired         = errors.New("No file uploaded")
	ErrFileTooLarge         = errors.New("File is too large")
	ErrMediaStorageDisabled = errors.New("Media storage is not configured")
	UnauthorizedError       = errors.New("Not authorized, no token")
	ErrTokenInvalid         = errors.New("Not authorized, token failed")
	UnExpectedError         = errors.New("Internal server error")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrInvalidObjectID:      BadRequest,
	ErrInvalidFeedType:      BadRequest,
	ErrTweetTextRequired:    BadRequest,
	ErrTweetTooLong:         BadRequest,
	ErrTweetMediaInvalid:    BadRequest,
	ErrTweetMediaLimit:      BadRequest,
	ErrTweetNotFound:        NotFound,
	ErrParentTweetNotFound:  NotFound,
	ErrQuotedTweetNotFound:  NotFound,
	ErrTweetDeleteForbidden: Forbidden,
	ErrUserNotFound:         NotFound,
	ErrUserFollowSelf:       BadRequest,
	ErrEmailTaken:           BadRequest,
	ErrUsernameTaken:        BadRequest,
	ErrUsernameInvalid:      BadRequest,
	ErrInvalidCredentials:   Unauthorized,
	ErrGoogleAccount:        BadRequest,
	ErrGoogleTokenInvalid:   Unauthorized,
	ErrNotificationNotFound: NotFound,
	ErrSearchQueryRequired:  BadRequest,
	ErrFileNotSupported:     BadRequest,
	ErrFileRequired:         BadRequest,
	ErrFileTooLarge:         BadRequest,
	ErrMediaStorageDisabled: InternalServerError,
	UnauthorizedError:       Unauthorized,
	ErrTokenInvalid:         Unauthorized,
	UnExpectedError:         InternalServerError,
}
