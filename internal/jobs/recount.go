// Package jobs hosts the background schedules the server runs next to
// its HTTP traffic.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/localspothub/deals-api/internal/repository"
)

// StartRecount launches the periodic counter recount. The redemption
// transaction keeps deals.current_redemptions correct on its own; the
// recount re-derives the counters from the redemption rows so manual
// data fixes or restored backups cannot leave stale numbers behind.
// Returns the scheduler so main can Shutdown it on exit.
func StartRecount(repo *repository.RedemptionRepo, every time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			fixed, err := repo.RecountAll(ctx)
			if err != nil {
				log.Printf("recount: failed: %v", err)
				return
			}
			if fixed > 0 {
				log.Printf("recount: corrected counters on %d deals", fixed)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	return s, nil
}
