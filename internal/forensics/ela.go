// Package forensics provides the image forensics sub-estimators: a
// compression-anomaly (error-level analysis) scorer and an embedded-metadata
// inspector. Both are total over arbitrary byte buffers: corrupt or
// non-image input yields an explicit Degraded result carrying the neutral
// value, never an error. Forensics must degrade gracefully rather than
// abort the surrounding analysis.
package forensics

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

// resaveQuality is the fixed JPEG quality for the ELA re-encode pass.
const resaveQuality = 85

// elaScale converts the mean per-channel pixel difference to a 0-100 score.
const elaScale = 10

// Result is the outcome of a forensic sub-estimator. Degraded marks inputs
// that could not be decoded; Value then holds the neutral score.
type Result struct {
	Value    float64
	Degraded bool
}

// degraded returns the neutral result for undecodable input.
func degraded() Result {
	return Result{Value: 0, Degraded: true}
}

// CompressionScore computes an error-level analysis score: the image is
// re-encoded through a lossy JPEG pass at fixed quality and the mean
// per-channel absolute difference between original and re-saved pixels is
// scaled by elaScale and capped at 100. Heavily edited or re-saved regions
// compress differently, pushing the score up.
func CompressionScore(data []byte) Result {
	original, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return degraded()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, original, &jpeg.Options{Quality: resaveQuality}); err != nil {
		return degraded()
	}

	resaved, err := jpeg.Decode(&buf)
	if err != nil {
		return degraded()
	}

	bounds := original.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return Result{Value: 0}
	}

	var diff uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			or, og, ob, _ := original.At(x, y).RGBA()
			rr, rg, rb, _ := resaved.At(x, y).RGBA()
			diff += absDiff(or>>8, rr>>8)
			diff += absDiff(og>>8, rg>>8)
			diff += absDiff(ob>>8, rb>>8)
		}
	}

	score := float64(diff) / float64(pixels*3) * elaScale
	if score > 100 {
		score = 100
	}
	return Result{Value: score}
}

func absDiff(a, b uint32) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}
