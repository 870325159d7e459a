package preview

import (
	"net/url"
	"path"
	"strings"
)

// MediaKind classifies a URL-valued field for inline preview.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaModel MediaKind = "model"
	MediaLink  MediaKind = "link"
)

var extensionKinds = map[string]MediaKind{
	".png":  MediaImage,
	".jpg":  MediaImage,
	".jpeg": MediaImage,
	".gif":  MediaImage,
	".webp": MediaImage,
	".bmp":  MediaImage,
	".svg":  MediaImage,
	".avif": MediaImage,

	".mp4":  MediaVideo,
	".webm": MediaVideo,
	".ogg":  MediaVideo,
	".mov":  MediaVideo,
	".m4v":  MediaVideo,

	".mp3":  MediaAudio,
	".wav":  MediaAudio,
	".aac":  MediaAudio,
	".flac": MediaAudio,
	".m4a":  MediaAudio,

	".glb":  MediaModel,
	".gltf": MediaModel,
}

// ClassifyURL sniffs the file extension of a URL and maps it to a preview
// kind. Query strings and fragments are ignored; anything unrecognized
// degrades to a plain link.
func ClassifyURL(raw string) MediaKind {
	target := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		target = u.Path
	}
	ext := strings.ToLower(path.Ext(target))
	if kind, ok := extensionKinds[ext]; ok {
		return kind
	}
	return MediaLink
}

// mediaFieldNames are fields treated as media previews regardless of suffix.
var mediaFieldNames = map[string]bool{
	"avatar": true,
	"logo":   true,
	"cover":  true,
}

func isMediaField(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "url") || mediaFieldNames[lower]
}

func isHTMLField(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "html")
}
