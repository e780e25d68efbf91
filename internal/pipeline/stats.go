package pipeline

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"barcode-tracker/internal/roi"
)

// Stats is a telemetry snapshot. It does not drive any decision other than
// what the escalation level already reflects.
type Stats struct {
	SessionID       string        `json:"session_id"`
	TotalScans      int           `json:"total_scans"`
	SuccessfulScans int           `json:"successful_scans"`
	SuccessRate     float64       `json:"success_rate"`
	AverageTime     time.Duration `json:"average_time"`
	P50             time.Duration `json:"p50"`
	P95             time.Duration `json:"p95"`
	Strategy        Strategy      `json:"strategy"`
	ROIState        roi.Phase     `json:"roi_state"`
	DroppedFrames   int64         `json:"dropped_frames"`
}

// collector accumulates outcome counters and a window of recent latencies.
type collector struct {
	total     int
	successes int
	totalTime time.Duration
	recent    []float64 // milliseconds, ring buffer
	next      int
	window    int
}

func newCollector(window int) *collector {
	if window <= 0 {
		window = 100
	}
	return &collector{window: window}
}

func (c *collector) record(success bool, elapsed time.Duration) {
	c.total++
	if success {
		c.successes++
	}
	c.totalTime += elapsed

	ms := float64(elapsed) / float64(time.Millisecond)
	if len(c.recent) < c.window {
		c.recent = append(c.recent, ms)
		return
	}
	c.recent[c.next] = ms
	c.next = (c.next + 1) % c.window
}

// fill copies the counters into s.
func (c *collector) fill(s *Stats) {
	s.TotalScans = c.total
	s.SuccessfulScans = c.successes
	if c.total > 0 {
		s.SuccessRate = float64(c.successes) / float64(c.total)
		s.AverageTime = c.totalTime / time.Duration(c.total)
	}
	if len(c.recent) == 0 {
		return
	}
	sorted := append([]float64(nil), c.recent...)
	sort.Float64s(sorted)
	s.P50 = msToDuration(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	s.P95 = msToDuration(stat.Quantile(0.95, stat.Empirical, sorted, nil))
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
