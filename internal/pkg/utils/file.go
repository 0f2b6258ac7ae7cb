package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	switch ext {
	case ".webm", ".wav", ".mp3", ".mp4", ".m4a", ".ogg":
		return true
	}
	return false
}

var (
	nameRegexp = regexp.MustCompile(`[^a-zA-Z0-9]`)
	fileRegexp = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
)

// SanitizeName replaces all non alphanumeric chars with '_'
func SanitizeName(s string) string {
	return nameRegexp.ReplaceAllString(s, "_")
}

// MakeValidateFileName drops the dir part of an uploaded file name and replaces unsafe chars,
// the extension is lowercased
func MakeValidateFileName(fileName string) string {
	base := filepath.Base(filepath.Clean("/" + fileName))
	if base == "/" || base == "." {
		return ""
	}
	ext := filepath.Ext(base)
	return fileRegexp.ReplaceAllString(strings.TrimSuffix(base, ext)+strings.ToLower(ext), "_")
}
