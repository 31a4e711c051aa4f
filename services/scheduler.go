// services/scheduler.go
package services

import (
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartEconomyScheduler runs the periodic housekeeping jobs:
//   - every 10 minutes, enforce downgrades on maintenance-delinquent assets so
//     stored tiers don't drift arbitrarily far from effective ones (the same
//     public operation anyone could call, just called proactively);
//   - hourly, log rounds whose recovery delay has elapsed so operators see
//     sweepable pools without polling.
func StartEconomyScheduler(tiers *TierService, rounds *RoundService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			ids, err := tiers.DelinquentAssetIDs(500)
			if err != nil {
				log.Printf("[Scheduler] DB error listing delinquent assets: %v", err)
				return
			}
			enforced := 0
			for _, id := range ids {
				if _, _, err := tiers.EnforceDowngrade(id); err != nil {
					if errors.Is(err, ErrNoDowngradeNeeded) {
						continue
					}
					log.Printf("[Scheduler] Failed to enforce downgrade for asset %d: %v", id, err)
					continue
				}
				enforced++
			}
			if enforced > 0 {
				log.Printf("✅ Scheduler enforced %d downgrade(s)", enforced)
			}
		}),
	)

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			sweepable, err := rounds.SweepableRounds()
			if err != nil {
				log.Printf("[Scheduler] DB error listing sweepable rounds: %v", err)
				return
			}
			for _, r := range sweepable {
				log.Printf("🧹 Round %s (%s) is sweepable: %d unclaimed", r.ID, r.Title, r.Pool-r.PaidOut)
			}
		}),
	)
}
