package library

import "errors"

var (
	// ErrBookNotFound is returned for ids that are not in the library
	ErrBookNotFound = errors.New("书籍不存在")

	// ErrInvalidStatus is returned by SetStatus for unknown statuses
	ErrInvalidStatus = errors.New("无效的阅读状态")

	// ErrBookmarkNotFound is returned when removing an unknown bookmark
	ErrBookmarkNotFound = errors.New("书签不存在")
)
