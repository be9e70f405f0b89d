package server

import (
	"context"
	"log"
	"time"
)

// StartWorkers launches background goroutines. Call with a cancellable
// context for graceful shutdown.
func (s *Server) StartWorkers(ctx context.Context) {
	if interval := s.cfg.RescanInterval(); interval > 0 {
		go s.runQuotaRescan(ctx, interval)
	}
}

// runQuotaRescan periodically reconciles the used-capacity counter against
// the real tree, healing drift caused by anything mutating the shared
// directory outside this process.
func (s *Server) runQuotaRescan(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			sum, skipped, err := s.ledger.Reconcile()
			if err != nil {
				log.Printf("[worker] quota rescan: %v", err)
				continue
			}
			if skipped > 0 {
				log.Printf("[worker] quota rescan: used=%d bytes, %d entries skipped", sum, skipped)
			}
		}
	}
}
