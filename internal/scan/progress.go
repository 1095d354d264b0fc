package scan

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker renders a live hashing progress line. Totals come
// from the pre-hash walk, so both file and byte percentages are known
// up front.
type ProgressTracker struct {
	totalFiles int
	totalBytes int64
	files      int
	bytes      int64
	message    string
	out        io.Writer
	mu         sync.Mutex
	startTime  time.Time
	done       chan bool
	finished   chan bool
}

func NewProgress(out io.Writer, totalFiles int, totalBytes int64, message string) *ProgressTracker {
	p := &ProgressTracker{
		totalFiles: totalFiles,
		totalBytes: totalBytes,
		message:    message,
		out:        out,
		startTime:  time.Now(),
		done:       make(chan bool),
		finished:   make(chan bool),
	}
	go p.render()
	return p
}

func (p *ProgressTracker) render() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	spinner := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frame := 0

	for {
		select {
		case <-p.done:
			p.mu.Lock()
			elapsed := time.Since(p.startTime)
			fmt.Fprintf(p.out, "\r✓ %s (%d files, %s, %s)          \n",
				p.message, p.files, humanBytes(p.bytes), elapsed.Round(time.Millisecond))
			p.mu.Unlock()
			close(p.finished)
			return

		case <-ticker.C:
			p.mu.Lock()
			if p.totalBytes > 0 {
				percent := float64(p.bytes) / float64(p.totalBytes) * 100
				fmt.Fprintf(p.out, "\r%s %s [%d/%d files, %s/%s] %.0f%%  ",
					spinner[frame%len(spinner)],
					p.message,
					p.files, p.totalFiles,
					humanBytes(p.bytes), humanBytes(p.totalBytes),
					percent)
			} else {
				fmt.Fprintf(p.out, "\r%s %s [%d/%d files]  ",
					spinner[frame%len(spinner)],
					p.message,
					p.files, p.totalFiles)
			}
			p.mu.Unlock()
			frame++
		}
	}
}

// Add records one hashed file of the given size.
func (p *ProgressTracker) Add(bytes int64) {
	p.mu.Lock()
	p.files++
	p.bytes += bytes
	p.mu.Unlock()
}

func (p *ProgressTracker) Finish() {
	close(p.done)
	<-p.finished
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
