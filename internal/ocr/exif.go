package ocr

import (
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// ImageMetadata is the EXIF information relevant to reading a photo.
type ImageMetadata struct {
	// HasEXIF reports whether the image carried an EXIF block.
	HasEXIF bool `json:"has_exif"`

	// Orientation is the EXIF orientation tag (1 is upright, 0 if absent).
	Orientation int `json:"orientation,omitempty"`

	// Software is the program that wrote the image, if recorded.
	Software string `json:"software,omitempty"`

	// Camera is "Make Model", if recorded.
	Camera string `json:"camera,omitempty"`
}

// Rotated reports whether the photo is stored rotated or mirrored.
// Recognition quality drops sharply on such images.
func (m ImageMetadata) Rotated() bool {
	return m.Orientation > 1
}

// InspectImage extracts EXIF metadata from image bytes.
// Images without EXIF, such as PNG screenshots, return a zero value.
func InspectImage(image []byte) ImageMetadata {
	var meta ImageMetadata

	rawExif, err := exif.SearchAndExtractExif(image)
	if err != nil || rawExif == nil {
		return meta
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return meta
	}
	meta.HasEXIF = true

	var cameraMake, cameraModel string
	for _, entry := range entries {
		switch entry.TagName {
		case "Orientation":
			meta.Orientation = orientationValue(entry.Value, entry.Formatted)
		case "Software", "ProcessingSoftware":
			if meta.Software == "" {
				meta.Software = strings.TrimSpace(entry.Formatted)
			}
		case "Make":
			cameraMake = strings.TrimSpace(entry.Formatted)
		case "Model":
			cameraModel = strings.TrimSpace(entry.Formatted)
		}
	}
	meta.Camera = strings.TrimSpace(cameraMake + " " + cameraModel)

	return meta
}

// orientationValue reads the orientation from the decoded value, falling back
// to the formatted text ("1" or "[1]").
func orientationValue(value any, formatted string) int {
	switch v := value.(type) {
	case []uint16:
		if len(v) > 0 {
			return int(v[0])
		}
	case uint16:
		return int(v)
	}

	n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(formatted), "[]"))
	if err != nil {
		return 0
	}
	return n
}
