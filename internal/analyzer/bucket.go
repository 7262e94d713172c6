package analyzer

import (
	"crypto/md5"
)

// bucketBands are the three disjoint trust ranges a key can map to,
// standing in for a secondary model signal.
var bucketBands = [3][2]int{
	{85, 95},
	{55, 65},
	{15, 30},
}

// Bucket deterministically maps a key to one of three risk bands.
// The digest choice is not load-bearing; only determinism and the
// three-way modulo split are. Total over any key, including empty.
func Bucket(key []byte) int {
	sum := md5.Sum(key)
	return int(sum[0]) % 3
}

// sampleInBand selects the band for key and draws a sample within it.
// By default the within-band value comes from the analyzer's random source
// on every call (the historical behavior); in deterministic mode it is
// derived from the digest so identical keys produce identical samples.
func (a *Analyzer) sampleInBand(key []byte) int {
	sum := md5.Sum(key)
	band := bucketBands[int(sum[0])%3]
	lo, hi := band[0], band[1]
	if a.deterministicBands {
		return lo + int(sum[1])%(hi-lo+1)
	}
	return lo + a.intn(hi-lo+1)
}
