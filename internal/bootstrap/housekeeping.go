package bootstrap

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sol-registry/sol-backend/internal/ratelimit"
)

// StartHousekeeping schedules periodic maintenance: evicting idle
// rate-limit buckets on the limiter's sweep interval. The returned
// scheduler is stopped by the caller on shutdown.
func StartHousekeeping(limiter *ratelimit.Limiter, interval time.Duration) *cron.Cron {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		limiter.Sweep()
		log.Printf("[housekeeping] rate limiter tracking %d client buckets", limiter.Size())
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return c
	}

	log.Printf("Housekeeping scheduler started (sweep every %s)", interval)
	c.Start()
	return c
}
