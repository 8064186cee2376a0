package parser

import (
	"fmt"
	"time"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// Constructor builds an unparsed parser
type Constructor func() Parser

// Options tune the parsers built by the default factory
type Options struct {
	EPUB       EPUBTimeouts
	MOBIEngine string // "text" (default) or "fitz"
}

// EPUBTimeouts bounds the EPUB sub-operations
type EPUBTimeouts struct {
	Ready      time.Duration
	Metadata   time.Duration
	Navigation time.Duration
	Render     time.Duration
}

// DefaultEPUBTimeouts returns the timeouts used when none are configured
func DefaultEPUBTimeouts() EPUBTimeouts {
	return EPUBTimeouts{
		Ready:      15 * time.Second,
		Metadata:   5 * time.Second,
		Navigation: 5 * time.Second,
		Render:     12 * time.Second,
	}
}

// DefaultFactory creates parsers for supported formats
type DefaultFactory struct {
	constructors map[types.BookFormat]Constructor
}

// NewFactory creates a factory with the EPUB, MOBI and TXT parsers registered
func NewFactory(opts Options) *DefaultFactory {
	f := &DefaultFactory{
		constructors: make(map[types.BookFormat]Constructor),
	}

	epubTimeouts := opts.EPUB
	if epubTimeouts == (EPUBTimeouts{}) {
		epubTimeouts = DefaultEPUBTimeouts()
	}

	f.Register(types.FormatTXT, func() Parser { return NewTXTParser() })
	f.Register(types.FormatEPUB, func() Parser { return NewEPUBParser(epubTimeouts) })
	if opts.MOBIEngine == "fitz" {
		f.Register(types.FormatMOBI, func() Parser { return NewFitzMOBIParser() })
	} else {
		f.Register(types.FormatMOBI, func() Parser { return NewMOBIParser() })
	}

	return f
}

// Register installs or replaces the constructor for a format
func (f *DefaultFactory) Register(format types.BookFormat, c Constructor) {
	f.constructors[format] = c
}

// NewParser returns a fresh parser for the given format
func (f *DefaultFactory) NewParser(format types.BookFormat) (Parser, error) {
	c, ok := f.constructors[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return c(), nil
}
