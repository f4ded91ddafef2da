package monitor

import (
	"testing"
	"time"

	"github.com/carebridge/phi-sentinel/internal/logger"
)

func TestHubStatsStartEmpty(t *testing.T) {
	hub := NewHub(logger.Nop())

	stats := hub.GetStats()
	if stats.ActiveConnections != 0 || stats.TotalConnections != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

func TestBroadcastEventNeverBlocks(t *testing.T) {
	hub := NewHub(logger.Nop())

	// Without Run() draining the channel, overflow events must be dropped
	// rather than blocking the producer
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.BroadcastEvent(Event{
				Type:      EventTypeExportProgress,
				Timestamp: time.Now(),
				Data:      ExportProgressEvent{Processed: i},
			})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("BroadcastEvent blocked")
	}
}
