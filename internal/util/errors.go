package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in document")
	ErrArchiveDirMissing = errors.New("archive directory is not configured")
)
