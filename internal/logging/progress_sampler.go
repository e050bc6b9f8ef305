package logging

// ProgressSampler suppresses repetitive progress logs. Engine output arrives
// as raw chunks with no percentage, so sampling is keyed on the running byte
// count: a chunk is logged when the total crosses into a new bucket.
type ProgressSampler struct {
	bucketBytes int64
	lastBucket  int64
}

// NewProgressSampler constructs a sampler that emits once per bucketBytes of
// output (default 64 KiB).
func NewProgressSampler(bucketBytes int64) *ProgressSampler {
	if bucketBytes <= 0 {
		bucketBytes = 64 * 1024
	}
	return &ProgressSampler{bucketBytes: bucketBytes, lastBucket: -1}
}

// ShouldLog reports whether progress at the given cumulative byte count
// should be logged. The first call always emits.
func (s *ProgressSampler) ShouldLog(total int64) bool {
	if s == nil {
		return true
	}
	if total < 0 {
		return false
	}
	bucket := total / s.bucketBytes
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state (e.g. when a new scan starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
