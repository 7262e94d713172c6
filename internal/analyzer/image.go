package analyzer

import (
	"strings"

	"github.com/Yasin-shaik/QValley/internal/domain"
	"github.com/Yasin-shaik/QValley/internal/forensics"
)

// elaThreshold is the compression-anomaly score above which an image is
// treated as likely re-saved or doctored.
const elaThreshold = 2.0

// editingSoftware are metadata signatures of common image editors.
var editingSoftware = []string{"photoshop", "gimp", "canva"}

// shortenerMarkers flag QR payloads that hide their destination.
var shortenerMarkers = []string{"bit.ly", "tinyurl", "t.co", "goo.gl", "cutt.ly"}

// AnalyzeImage scores an uploaded screenshot. Both forensic sub-signals
// degrade to neutral values on corrupt or non-image input, so this path
// never fails — it only loses evidence. Reasons are deduplicated before
// return.
func (a *Analyzer) AnalyzeImage(img []byte, qrText string) domain.RiskSignal {
	risk := 0
	reasons := []string{}

	if ela := forensics.CompressionScore(img); ela.Value > elaThreshold {
		risk += 30
		reasons = append(reasons, "High compression anomaly (ELA)")
	}

	if tag := forensics.SoftwareTag(img); !tag.Degraded {
		software := strings.ToLower(tag.Value)
		if containsAny(software, editingSoftware) {
			risk += 22
			reasons = append(reasons, "Edited using "+software)
		}
	}

	if qrText != "" && containsAny(strings.ToLower(qrText), shortenerMarkers) {
		risk += 15
		reasons = append(reasons, "Shortened URL in QR content")
	}

	risk = clamp(risk + a.jitter(-3, 3))
	heuristic := 100 - risk

	trust := Blend(heuristic, a.sampleInBand(img), WeightImage)

	verdict, action := ClassifyAction(trust, ImageActions)
	return domain.RiskSignal{
		Trust:   trust,
		Verdict: verdict,
		Reasons: dedupe(reasons),
		Action:  action,
	}
}
