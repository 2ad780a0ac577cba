package eod

import (
	"time"

	"paper-trader/internal/interfaces"
)

var defaultSummarizer interfaces.EodSummarizer = NewSummarizer()

// SetDefaultSummarizer installs s, typically an eodobs-wrapped summarizer,
// behind the package-level helpers.
func SetDefaultSummarizer(s interfaces.EodSummarizer) {
	defaultSummarizer = s
}

func NewSummarizer() interfaces.EodSummarizer {
	return &eodSummarizer{now: func() time.Time { return time.Now().UTC() }}
}

func SummarizeDay(t time.Time) (string, error) {
	return defaultSummarizer.SummarizeDay(t)
}

func SummarizeToday() (string, error) {
	return defaultSummarizer.SummarizeToday()
}

// SummarizeYesterday covers the UTC day that just ended; the scheduler runs
// it shortly after midnight.
func SummarizeYesterday() (string, error) {
	return defaultSummarizer.SummarizeDay(time.Now().UTC().AddDate(0, 0, -1))
}
