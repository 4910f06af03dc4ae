// Package progress renders transfer-progress events to a terminal,
// adapted from the teacher's p2p/progress.go ProgressTracker — same ANSI
// bar/color styling and update throttling, but driven by events.Sink
// notifications instead of being called directly from the transfer loop,
// since the core here only ever depends on the Sink interface.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ominous-Josef/proxishare/internal/events"
)

// Colors are the ANSI escape codes the renderer uses.
var Colors = struct {
	Reset, Green, Yellow, Cyan, Gray, Bold string
}{
	Reset:  "\033[0m",
	Green:  "\033[32m",
	Yellow: "\033[33m",
	Cyan:   "\033[36m",
	Gray:   "\033[90m",
	Bold:   "\033[1m",
}

const updateInterval = 50 * time.Millisecond

// Renderer draws a progress bar per transfer id, tracking each transfer's
// start time independently so speed is computed from when that transfer's
// first event arrived.
type Renderer struct {
	started map[string]time.Time
	last    map[string]time.Time
}

// NewRenderer creates an empty Renderer.
func NewRenderer() *Renderer {
	return &Renderer{started: make(map[string]time.Time), last: make(map[string]time.Time)}
}

// Run drains sink's progress channel until it's closed or stop fires,
// printing a line per update. Intended to run in its own goroutine.
func (r *Renderer) Run(sink *events.ChannelSink, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case p, ok := <-sink.Progress:
			if !ok {
				return
			}
			r.render(p)
		}
	}
}

func (r *Renderer) render(p events.TransferProgress) {
	now := time.Now()
	start, ok := r.started[p.TransferID]
	if !ok {
		start = now
		r.started[p.TransferID] = start
	}

	if last, ok := r.last[p.TransferID]; ok && now.Sub(last) < updateInterval && p.Status == "in_progress" {
		return
	}
	r.last[p.TransferID] = now

	var percentage float64
	if p.TotalBytes > 0 {
		percentage = float64(p.BytesSent) / float64(p.TotalBytes) * 100
	}

	elapsed := now.Sub(start).Seconds()
	var speedMBps float64
	if elapsed > 0 {
		speedMBps = float64(p.BytesSent) / elapsed / (1024 * 1024)
	}

	const barWidth = 30
	filled := int(percentage / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)

	statusColor := Colors.Cyan
	if p.Status == "completed" {
		statusColor = Colors.Green
	} else if p.Status == "failed" || p.Status == "cancelled" {
		statusColor = Colors.Yellow
	}

	fmt.Printf("\r%s[%s]%s %s %5.1f%% %s%-12s%s %6.2f MB/s  %s",
		statusColor, bar, Colors.Reset,
		directionArrow(p.Direction),
		percentage,
		Colors.Bold, p.FileName, Colors.Reset,
		speedMBps,
		statusSuffix(p.Status))

	if p.Status == "completed" || p.Status == "failed" || p.Status == "cancelled" {
		fmt.Println()
		delete(r.started, p.TransferID)
		delete(r.last, p.TransferID)
	}
}

func directionArrow(direction string) string {
	if direction == "send" {
		return "->"
	}
	return "<-"
}

func statusSuffix(status string) string {
	switch status {
	case "completed":
		return "done"
	case "failed":
		return "failed"
	case "cancelled":
		return "cancelled"
	default:
		return ""
	}
}
