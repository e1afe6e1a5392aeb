package render

import (
	"fmt"
	"strings"
)

// Quality is the engine's render preset flag.
type Quality string

const (
	QualityLow    Quality = "-ql"
	QualityMedium Quality = "-qm"
	QualityHigh   Quality = "-qh"
	Quality2K     Quality = "-qp"
	Quality4K     Quality = "-qk"
)

// DefaultQuality keeps render time bounded.
const DefaultQuality = QualityLow

// profileDirs lists every output folder name the engine has been seen using.
var profileDirs = []string{"480p15", "720p30", "1080p60", "1440p60", "2160p60", "low_quality", "default"}

// Profile returns the output folder the engine uses for q.
func (q Quality) Profile() string {
	switch q {
	case QualityMedium:
		return "720p30"
	case QualityHigh:
		return "1080p60"
	case Quality2K:
		return "1440p60"
	case Quality4K:
		return "2160p60"
	default:
		return "480p15"
	}
}

// ParseQuality accepts a flag ("-qm") or a name ("medium").
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "-ql", "l", "low":
		return QualityLow, nil
	case "-qm", "m", "medium":
		return QualityMedium, nil
	case "-qh", "h", "high":
		return QualityHigh, nil
	case "-qp", "p", "2k":
		return Quality2K, nil
	case "-qk", "k", "4k":
		return Quality4K, nil
	}
	return "", fmt.Errorf("unknown render quality %q", s)
}
