package run

import (
	"context"
	"strings"
	"time"

	"sona/internal/hook"
)

const hookQueueSize = 16

// enqueue hands a transcript to the hook worker without blocking the
// request that produced it.
func (d *Daemon) enqueue(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	job := hook.Job{
		Text:      text,
		Source:    "http",
		Timestamp: time.Now(),
	}
	select {
	case d.hookCh <- job:
	default:
		d.metrics.dropped.Inc()
		d.logger.Warn("hook queue full, dropping job")
	}
}

func (d *Daemon) hookWorker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.hookCh:
			if err := d.hook.Run(ctx, job); err != nil {
				d.metrics.failed.Inc()
				d.logger.Errorf("hook: %v", err)
				continue
			}
			d.metrics.sent.Inc()
		}
	}
}
