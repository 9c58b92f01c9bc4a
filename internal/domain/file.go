package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileType represents the declared logical type of an uploaded document
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeText  FileType = "txt"
	FileTypeCSV   FileType = "csv"
	FileTypeDocx  FileType = "docx"
	FileTypeAudio FileType = "audio"
)

// FileStatus represents the processing lifecycle stage of a file
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// File represents an uploaded knowledge-base document
type File struct {
	ID          string
	OwnerID     string
	Title       string
	StoragePath string
	SizeBytes   int64
	Type        FileType
	Status      FileStatus
	Metadata    map[string]any
	ChunkCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewFile creates a new File instance in pending status
func NewFile(id, ownerID, title string, sizeBytes int64, fileType FileType, now time.Time) *File {
	return &File{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		SizeBytes: sizeBytes,
		Type:      fileType,
		Status:    FileStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateFile validates a File instance
func ValidateFile(f *File) error {
	if f == nil {
		return fmt.Errorf("file cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("file ID is required")
	}

	if f.OwnerID == "" {
		return fmt.Errorf("file OwnerID is required")
	}

	if f.Title == "" {
		return fmt.Errorf("file Title is required")
	}

	if !isValidFileType(f.Type) {
		return fmt.Errorf("file Type is invalid: %s", f.Type)
	}

	if !isValidFileStatus(f.Status) {
		return fmt.Errorf("file Status is invalid: %s", f.Status)
	}

	return nil
}

// Terminal reports whether the status is a final processing outcome.
func (s FileStatus) Terminal() bool {
	return s == FileStatusCompleted || s == FileStatusFailed
}

// CanTransition reports whether a status change is allowed. Files never
// return to pending once they have left it; a terminal file may re-enter
// processing only through an explicit retry.
func (s FileStatus) CanTransition(to FileStatus) bool {
	if !isValidFileStatus(to) {
		return false
	}
	if to == FileStatusPending {
		return s == FileStatusPending
	}
	return true
}

// InferFileType maps a filename extension and MIME type to a FileType.
// Unrecognized inputs default to plain text.
func InferFileType(filename, mimeType string) FileType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "pdf":
		return FileTypePDF
	case "txt", "md", "text":
		return FileTypeText
	case "csv":
		return FileTypeCSV
	case "docx", "doc":
		return FileTypeDocx
	case "mp3", "wav", "m4a", "ogg", "flac":
		return FileTypeAudio
	}

	switch {
	case mimeType == "application/pdf":
		return FileTypePDF
	case mimeType == "text/csv":
		return FileTypeCSV
	case mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mimeType == "application/msword":
		return FileTypeDocx
	case strings.HasPrefix(mimeType, "audio/"):
		return FileTypeAudio
	}

	return FileTypeText
}

// StorageExtension returns the extension used when building storage paths.
func StorageExtension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "txt"
	}
	return ext
}

// isValidFileType checks if a FileType is valid
func isValidFileType(t FileType) bool {
	switch t {
	case FileTypePDF, FileTypeText, FileTypeCSV, FileTypeDocx, FileTypeAudio:
		return true
	}
	return false
}

// isValidFileStatus checks if a FileStatus is valid
func isValidFileStatus(s FileStatus) bool {
	switch s {
	case FileStatusPending, FileStatusProcessing, FileStatusCompleted, FileStatusFailed:
		return true
	}
	return false
}
