package exifmeta

import (
	"path/filepath"
	"strings"
)

// IsPhotoFile checks if a file extension belongs to a supported photograph
func IsPhotoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".heic", ".hif":
		return true
	case ".tif", ".tiff":
		return true
	default:
		return IsRawFormat(path)
	}
}

// IsRawFormat checks if a file is in a camera RAW format. These are handed
// to exiftool because their containers carry EXIF in vendor-specific ways.
func IsRawFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	rawFormats := []string{".dng", ".raf", ".arw", ".nef", ".cr2", ".cr3", ".nrw", ".srf", ".orf", ".rw2", ".pef"}
	for _, format := range rawFormats {
		if ext == format {
			return true
		}
	}
	return false
}
