package repository

import (
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateGoogleID = errors.New("duplicate google id")
)

// translateWriteErr 将唯一索引冲突转换为具体字段的哨兵错误
func translateWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "username"):
			return ErrDuplicateUsername
		case strings.Contains(msg, "email"):
			return ErrDuplicateEmail
		case strings.Contains(msg, "googleId"):
			return ErrDuplicateGoogleID
		}
	}
	return errors.Wrap(err, op)
}
