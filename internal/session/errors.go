package session

import "errors"

var (
	// ErrSessionNotFound is returned by Chapter when the book has no live
	// session. Callers must EnsureReady first.
	ErrSessionNotFound = errors.New("当前书籍未加载到内存，请重新导入文件后阅读")

	// ErrMissingSource is returned when a book must be rebuilt but its raw
	// file was never stored or has been cleared
	ErrMissingSource = errors.New("未找到该书籍原始文件，请重新导入后阅读")

	// ErrSessionDisposed is returned by a Chapter call whose session was
	// released before the chapter resolved
	ErrSessionDisposed = errors.New("书籍已关闭，请重新打开后阅读")
)

const (
	parseTimeoutMsg   = "书籍解析超时，请稍后重试或更换文件"
	chapterTimeoutMsg = "章节加载超时，请稍后重试"
)
