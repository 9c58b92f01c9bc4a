package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   FileStatus
		expected string
	}{
		{"Pending", FileStatusPending, "pending"},
		{"Processing", FileStatusProcessing, "processing"},
		{"Completed", FileStatusCompleted, "completed"},
		{"Failed", FileStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestNewFile(t *testing.T) {
	now := time.Now().UTC()
	f := NewFile("f1", "user1", "report.pdf", 500000, FileTypePDF, now)

	assert.Equal(t, "f1", f.ID)
	assert.Equal(t, "user1", f.OwnerID)
	assert.Equal(t, "report.pdf", f.Title)
	assert.Equal(t, int64(500000), f.SizeBytes)
	assert.Equal(t, FileTypePDF, f.Type)
	assert.Equal(t, FileStatusPending, f.Status)
	assert.Equal(t, now, f.CreatedAt)
	assert.Equal(t, now, f.UpdatedAt)
}

func TestValidateFile(t *testing.T) {
	now := time.Now().UTC()

	valid := func() *File {
		return NewFile("f1", "user1", "notes.txt", 42, FileTypeText, now)
	}

	t.Run("valid file passes", func(t *testing.T) {
		require.NoError(t, ValidateFile(valid()))
	})

	t.Run("nil file fails", func(t *testing.T) {
		assert.Error(t, ValidateFile(nil))
	})

	t.Run("missing ID fails", func(t *testing.T) {
		f := valid()
		f.ID = ""
		assert.Error(t, ValidateFile(f))
	})

	t.Run("missing owner fails", func(t *testing.T) {
		f := valid()
		f.OwnerID = ""
		assert.Error(t, ValidateFile(f))
	})

	t.Run("missing title fails", func(t *testing.T) {
		f := valid()
		f.Title = ""
		assert.Error(t, ValidateFile(f))
	})

	t.Run("unknown type fails", func(t *testing.T) {
		f := valid()
		f.Type = "spreadsheet"
		assert.Error(t, ValidateFile(f))
	})

	t.Run("unknown status fails", func(t *testing.T) {
		f := valid()
		f.Status = "queued"
		assert.Error(t, ValidateFile(f))
	})
}

func TestFileStatusCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    FileStatus
		to      FileStatus
		allowed bool
	}{
		{"pending to processing", FileStatusPending, FileStatusProcessing, true},
		{"processing to completed", FileStatusProcessing, FileStatusCompleted, true},
		{"processing to failed", FileStatusProcessing, FileStatusFailed, true},
		{"completed stays completed", FileStatusCompleted, FileStatusCompleted, true},
		{"completed back to pending", FileStatusCompleted, FileStatusPending, false},
		{"failed back to pending", FileStatusFailed, FileStatusPending, false},
		{"processing back to pending", FileStatusProcessing, FileStatusPending, false},
		{"retry from completed", FileStatusCompleted, FileStatusProcessing, true},
		{"retry from failed", FileStatusFailed, FileStatusProcessing, true},
		{"unknown target", FileStatusPending, "queued", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestFileStatusTerminal(t *testing.T) {
	assert.False(t, FileStatusPending.Terminal())
	assert.False(t, FileStatusProcessing.Terminal())
	assert.True(t, FileStatusCompleted.Terminal())
	assert.True(t, FileStatusFailed.Terminal())
}

func TestInferFileType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mimeType string
		expected FileType
	}{
		{"pdf extension", "report.pdf", "", FileTypePDF},
		{"txt extension", "notes.txt", "", FileTypeText},
		{"markdown treated as text", "readme.md", "", FileTypeText},
		{"csv extension", "data.csv", "", FileTypeCSV},
		{"docx extension", "letter.docx", "", FileTypeDocx},
		{"audio extension", "memo.mp3", "", FileTypeAudio},
		{"extension wins over mime", "report.pdf", "text/csv", FileTypePDF},
		{"mime fallback pdf", "download", "application/pdf", FileTypePDF},
		{"mime fallback audio", "voicemail", "audio/ogg", FileTypeAudio},
		{"unknown defaults to text", "blob.xyz", "application/octet-stream", FileTypeText},
		{"empty defaults to text", "", "", FileTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferFileType(tt.filename, tt.mimeType))
		})
	}
}

func TestStorageExtension(t *testing.T) {
	assert.Equal(t, "pdf", StorageExtension("Report.PDF"))
	assert.Equal(t, "csv", StorageExtension("data.csv"))
	assert.Equal(t, "txt", StorageExtension("no-extension"))
}
