package conversion

import (
	"net/http"

	"github.com/fileforge/fileforge/internal/registry"
	"github.com/fileforge/fileforge/pkg/handlers"
)

// DownloadURLBase is the path prefix clients use to fetch a registered
// output by its conversion id.
const DownloadURLBase = "/api/v1/core/download/"

// FileInfo describes the output file referenced by a response.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	MimeType string `json:"mime_type"`
}

// Response is the body returned by every successful conversion.
type Response struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	ConversionID string   `json:"conversion_id"`
	Status       string   `json:"status"`
	DownloadURL  string   `json:"download_url"`
	FileInfo     FileInfo `json:"file_info"`
}

// NewResponse builds the success body for a registered entry.
func NewResponse(message, format string, entry registry.Entry) Response {
	return Response{
		Success:      true,
		Message:      message,
		ConversionID: entry.ID.String(),
		Status:       string(StatusDone),
		DownloadURL:  DownloadURLBase + entry.ID.String(),
		FileInfo: FileInfo{
			Filename: entry.Filename,
			Size:     entry.SizeBytes,
			Format:   format,
			MimeType: entry.MimeType,
		},
	}
}

// Respond writes the success body for a registered entry.
func Respond(w http.ResponseWriter, message, format string, entry registry.Entry) {
	handlers.RespondJSON(w, http.StatusOK, NewResponse(message, format, entry))
}
