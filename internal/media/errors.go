package media

import "errors"

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrFileNotReadable indicates the input file exists but cannot be opened
// for reading.
var ErrFileNotReadable = errors.New("file not readable")

// ErrFileTooLarge indicates the input exceeds the size ceiling.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ErrUnsupportedFormat indicates the input extension is not in the allow-list.
var ErrUnsupportedFormat = errors.New("unsupported media format")
