package domain

import "io"

// UploadFile one file of a multipart upload
type UploadFile struct {
	Name     string
	MimeType string
	Content  io.ReadCloser
}

// Close release Content
func (f UploadFile) Close() error {
	if f.Content == nil {
		return nil
	}
	return f.Content.Close()
}
