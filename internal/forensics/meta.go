package forensics

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// TagResult is the outcome of the metadata inspector. Degraded marks inputs
// with no readable EXIF block; Value is then the empty string.
type TagResult struct {
	Value    string
	Degraded bool
}

// SoftwareTag extracts the EXIF Software tag, identifying the tool that
// last wrote the image. Absence of EXIF data, a missing tag, or any decode
// failure yields a degraded empty result — never an error.
func SoftwareTag(data []byte) TagResult {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return TagResult{Degraded: true}
	}

	tag, err := x.Get(exif.Software)
	if err != nil {
		return TagResult{Degraded: true}
	}

	software, err := tag.StringVal()
	if err != nil {
		return TagResult{Degraded: true}
	}

	return TagResult{Value: software}
}
