package workers

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"game-match-system/services"
)

// SessionReaper aborts sessions that have had no connected players for longer
// than MaxIdle. Abandoned matches are recorded as draws so the players'
// active-match markers get cleared and they can queue again.
type SessionReaper struct {
	Registry *services.SessionRegistry
	MaxIdle  time.Duration
}

func (r *SessionReaper) Register(sched gocron.Scheduler) error {
	_, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(r.reap),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule session reaper job: %w", err)
	}
	log.Println("🧹 [REAPER] idle session reaper scheduled (every 1m)")
	return nil
}

func (r *SessionReaper) reap() {
	for _, session := range r.Registry.Sessions() {
		info := session.Info()
		if info.State == services.StateEnded {
			continue
		}
		if info.Connected == 0 && info.Age > r.MaxIdle {
			log.Printf("🧹 [REAPER] aborting idle session %s (idle %s, state %d)", session.ID(), info.Age.Round(time.Second), info.State)
			session.Abort()
		}
	}
}
