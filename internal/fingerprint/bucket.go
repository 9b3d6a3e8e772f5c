package fingerprint

import "fmt"

// Buckets lists the amount buckets in ascending order. Each bucket is a
// half-open range [lower, upper): an amount of exactly 1000 falls in "1k-5k".
var Buckets = []string{"0-1k", "1k-5k", "5k-20k", "20k-50k", "50k-100k", "100k+"}

var bucketLowerBounds = []float64{0, 1000, 5000, 20000, 50000, 100000}

// Bucket midpoint estimates, used to approximate blocked-amount totals from
// privacy-preserving buckets.
var bucketMidpoints = map[string]float64{
	"0-1k":     500,
	"1k-5k":    3000,
	"5k-20k":   12500,
	"20k-50k":  35000,
	"50k-100k": 75000,
	"100k+":    150000,
}

// BucketAmount maps an exact amount to its privacy-preserving bucket.
// Negative amounts are rejected.
func BucketAmount(amount float64) (string, error) {
	if amount < 0 {
		return "", fmt.Errorf("%w: %v", ErrNegativeAmount, amount)
	}
	for i := len(bucketLowerBounds) - 1; i >= 0; i-- {
		if amount >= bucketLowerBounds[i] {
			return Buckets[i], nil
		}
	}
	return Buckets[0], nil
}

// BucketMidpoint returns the estimated average amount for a bucket.
// Unknown buckets fall back to a conservative 10000.
func BucketMidpoint(bucket string) float64 {
	if mid, ok := bucketMidpoints[bucket]; ok {
		return mid
	}
	return 10000
}

// IsValidBucket reports whether bucket is one of the enumerated ranges.
func IsValidBucket(bucket string) bool {
	_, ok := bucketMidpoints[bucket]
	return ok
}
