package providers

import (
	"mime"
	"path"
	"strings"

	types "github.com/yungbote/unifind-backend/internal/domain"
)

const driveFolderMime = "application/vnd.google-apps.folder"

var driveMimeTypes = map[string]string{
	"application/pdf":    "pdf",
	"application/py":     "py",
	"application/msword": "docx",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"image/jpeg": "image",
	"image/png":  "image",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "spreadsheet",
	"application/vnd.ms-excel":                "spreadsheet",
	"application/zip":                         "archive",
	"audio/mpeg":                              "audio",
	"video/mp4":                               "video",
	"application/vnd.google-apps.spreadsheet": "spreadsheet",
	"application/vnd.jgraph.mxfile":           "diagram",
	driveFolderMime:                           types.FiletypeFolder,
}

// DriveFiletype maps a Drive MIME type through the fixed table. Anything not
// in the table is "unknown".
func DriveFiletype(mimeType string) string {
	if ft, ok := driveMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]; ok {
		return ft
	}
	return types.FiletypeUnknown
}

// lastDotSegment returns the lowercase text after the final dot, or fallback
// when the name has no dot.
func lastDotSegment(name, fallback string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return fallback
	}
	return strings.ToLower(name[i+1:])
}

// DropboxFiletype: a trailing slash marks a folder, else the final dot segment.
// A name without a dot is its own segment.
func DropboxFiletype(name string) string {
	if strings.HasSuffix(name, "/") {
		return types.FiletypeFolder
	}
	return lastDotSegment(name, strings.ToLower(name))
}

func GmailFiletype(name string) string {
	return lastDotSegment(name, types.FiletypeUnknown)
}

func PhotosFiletype(name string) string {
	return lastDotSegment(name, types.FiletypeImage)
}

func mimeFromName(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	mt := mime.TypeByExtension(strings.ToLower(ext))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return mt
}
