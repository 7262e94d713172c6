package forensics

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func flatImage(t *testing.T, w, h int, c color.Color) *image.RGBA {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("jpeg encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestCompressionScore(t *testing.T) {
	t.Run("CorruptInputDegrades", func(t *testing.T) {
		res := CompressionScore([]byte("not an image at all"))
		if !res.Degraded {
			t.Error("expected degraded result for corrupt input")
		}
		if res.Value != 0 {
			t.Errorf("degraded value should be neutral 0, got %f", res.Value)
		}
	})

	t.Run("EmptyInputDegrades", func(t *testing.T) {
		if res := CompressionScore(nil); !res.Degraded {
			t.Error("expected degraded result for nil input")
		}
	})

	t.Run("FlatImageScoresLow", func(t *testing.T) {
		data := encodePNG(t, flatImage(t, 32, 32, color.RGBA{R: 120, G: 120, B: 120, A: 255}))

		res := CompressionScore(data)
		if res.Degraded {
			t.Fatal("valid PNG should not degrade")
		}
		// A uniform image survives the re-save pass nearly unchanged.
		if res.Value > 2.0 {
			t.Errorf("flat image ELA score unexpectedly high: %f", res.Value)
		}
	})

	t.Run("JPEGInputAccepted", func(t *testing.T) {
		data := encodeJPEG(t, flatImage(t, 16, 16, color.RGBA{R: 200, A: 255}), 90)

		res := CompressionScore(data)
		if res.Degraded {
			t.Error("valid JPEG should not degrade")
		}
		if res.Value < 0 || res.Value > 100 {
			t.Errorf("score %f out of range", res.Value)
		}
	})

	t.Run("ScoreIsDeterministic", func(t *testing.T) {
		data := encodePNG(t, flatImage(t, 24, 24, color.RGBA{R: 10, G: 200, B: 90, A: 255}))

		first := CompressionScore(data)
		second := CompressionScore(data)
		if first.Value != second.Value {
			t.Errorf("same bytes gave different scores: %f vs %f", first.Value, second.Value)
		}
	})
}

func TestSoftwareTag(t *testing.T) {
	t.Run("NoExifDegrades", func(t *testing.T) {
		data := encodePNG(t, flatImage(t, 8, 8, color.White))

		res := SoftwareTag(data)
		if !res.Degraded {
			t.Error("expected degraded result for image without EXIF")
		}
		if res.Value != "" {
			t.Errorf("degraded value should be empty, got %q", res.Value)
		}
	})

	t.Run("CorruptInputDegrades", func(t *testing.T) {
		if res := SoftwareTag([]byte{0x01, 0x02, 0x03}); !res.Degraded {
			t.Error("expected degraded result for corrupt input")
		}
	})

	t.Run("PlainJPEGDegrades", func(t *testing.T) {
		// Encoded fresh, so no EXIF block is present.
		data := encodeJPEG(t, flatImage(t, 8, 8, color.Black), 85)
		if res := SoftwareTag(data); !res.Degraded {
			t.Error("expected degraded result for EXIF-less JPEG")
		}
	})
}
