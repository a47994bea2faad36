package metadata

import (
	"net/http"
	"path/filepath"
	"strings"
)

// extContentTypes covers camera formats that content sniffing does not recognise.
var extContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".nef":  "image/x-nikon-nef",
	".cr2":  "image/x-canon-cr2",
	".cr3":  "image/x-canon-cr3",
	".arw":  "image/x-sony-arw",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".m4v":  "video/x-m4v",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".txt":  "text/plain",
}

// DetectContentType derives a content type for a file that arrived without one.
// The extension wins; otherwise the first bytes of the file are sniffed.
func DetectContentType(name string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := extContentTypes[ext]; ok {
		return ct
	}
	if len(head) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(head)
}
