// Package file stores uploaded files in S3-compatible object storage or on
// the local disk and validates uploads before they are stored.
package file

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
)

// Object describes a stored file.
type Object struct {
	Key      string
	Size     int64
	MIMEType string
	URL      string
}

// Storage is implemented by S3Storage and LocalStorage.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, mimeType string) (*Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var imageMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DetectMIMEType sniffs the first 512 bytes of the upload.
func DetectMIMEType(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", ErrNilFileHeader
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	return http.DetectContentType(buf[:n]), nil
}

// ValidateImage checks that fh is a raster image no larger than maxSize and
// returns its sniffed MIME type and canonical extension.
func ValidateImage(fh *multipart.FileHeader, maxSize int64) (mimeType, ext string, err error) {
	if fh == nil {
		return "", "", ErrNilFileHeader
	}
	if maxSize > 0 && fh.Size > maxSize {
		return "", "", ErrFileTooLarge
	}
	mimeType, err = DetectMIMEType(fh)
	if err != nil {
		return "", "", err
	}
	ext, ok := imageMIMETypes[mimeType]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrMIMETypeNotAllowed, mimeType)
	}
	return mimeType, ext, nil
}

// CleanKey normalizes an object key and rejects traversal.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(key, "\\", "/")), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return key, nil
}
