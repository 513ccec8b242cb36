package servicedef

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultImageMIMEType = "image/png"

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageMIMEType guesses an image's MIME type from its file extension, defaulting to PNG.
func ImageMIMEType(path string) string {
	if t, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return defaultImageMIMEType
}

// ImagePart builds an inline-data part for the agent-run API.
func ImagePart(data []byte, mimeType string) Part {
	return Part{Data: &Blob{Data: base64.StdEncoding.EncodeToString(data), MimeType: mimeType}}
}

// DataURI encodes data as a "data:" URI for the Assistants API's image_url content.
func DataURI(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ImagePartFromFile reads an image file into an inline-data part.
func ImagePartFromFile(path string) (Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Part{}, fmt.Errorf("failed to read image %q: %w", path, err)
	}
	return ImagePart(data, ImageMIMEType(path)), nil
}

// ImageURLContentFromFile reads an image file into image_url message content.
func ImageURLContentFromFile(path string) (MessageContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MessageContent{}, fmt.Errorf("failed to read image %q: %w", path, err)
	}
	return ImageURLContent(DataURI(data, ImageMIMEType(path))), nil
}
