package media

import (
	"encoding/base64"

	e "nuclight.org/wa-stylist-relay/pkg/entities"
)

// DefaultMimeType is assumed when the platform does not report one.
const DefaultMimeType = "image/jpeg"

// EncodeToBase64 returns the standard base64 encoding of data.
func EncodeToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func Encode(data []byte, mimeType string) e.EncodedMedia {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	return e.EncodedMedia{
		Data:     EncodeToBase64(data),
		MimeType: mimeType,
	}
}

// DataURI renders encoded media as a data: URI.
func DataURI(m e.EncodedMedia) string {
	mimeType := m.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	return "data:" + mimeType + ";base64," + m.Data
}

func Extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}

// MimeTypeByExtension is the reverse of Extension.
func MimeTypeByExtension(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
