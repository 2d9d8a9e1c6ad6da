package post

import "github.com/google/uuid"

const objectPrefix = "cats/"

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ObjectPath returns a fresh, collision-free storage path for an image.
func ObjectPath(contentType string) string {
	return objectPrefix + uuid.NewString() + "." + extensionFor(contentType)
}

func extensionFor(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	return "jpg"
}
