package parser

import "errors"

var (
	// ErrUnsupportedFormat is returned for file names outside epub/mobi/txt
	ErrUnsupportedFormat = errors.New("不支持的文件格式，仅支持 EPUB / MOBI / TXT")

	// ErrParse wraps any failure to interpret a book's bytes
	ErrParse = errors.New("书籍解析失败")

	// ErrChapterNotFound is returned for indexes outside [0, PageCount())
	ErrChapterNotFound = errors.New("章节不存在")

	// ErrClosed is returned by a parser after Close
	ErrClosed = errors.New("解析器已释放")
)
