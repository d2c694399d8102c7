package ffmpeg

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// progressTracker holds the latest completed fraction of the running encode.
type progressTracker struct {
	bits  atomic.Uint64
	valid atomic.Bool
}

func (p *progressTracker) reset() {
	p.bits.Store(0)
	p.valid.Store(false)
}

func (p *progressTracker) set(fraction float64) {
	p.bits.Store(math.Float64bits(clampFraction(fraction)))
	p.valid.Store(true)
}

func (p *progressTracker) get() (float64, bool) {
	if !p.valid.Load() {
		return 0, false
	}
	return math.Float64frombits(p.bits.Load()), true
}

// consume reads ffmpeg -progress output until r is exhausted. out_time_us is
// measured against totalMs; progress=end reports completion.
func (p *progressTracker) consume(r io.Reader, totalMs int64) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// out_time_ms is also microseconds despite its name.
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil || us < 0 || totalMs <= 0 {
				continue
			}
			p.set(float64(us) / float64(totalMs*1000))
		case "progress":
			if value == "end" {
				p.set(1)
			}
		}
	}
}

func clampFraction(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}

// lastLine returns the last non-empty line of s, which is where ffmpeg
// prints the fatal error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
