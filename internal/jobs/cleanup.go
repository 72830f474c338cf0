package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/repository"
)

const cleanupTimeout = 30 * time.Second

// CleanupJob periodically removes expired operator sessions.
type CleanupJob struct {
	adminSessionRepo repository.AdminSessionRepository
	interval         time.Duration
	done             chan struct{}
	stopped          chan struct{}
}

func NewCleanupJob(adminSessionRepo repository.AdminSessionRepository, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		adminSessionRepo: adminSessionRepo,
		interval:         interval,
		done:             make(chan struct{}),
		stopped:          make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

// Stop signals the job and waits for an in-flight run to finish.
func (j *CleanupJob) Stop() {
	close(j.done)
	<-j.stopped
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	defer close(j.stopped)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	j.runCleanup(ctx, "admin sessions", j.adminSessionRepo.DeleteExpired)
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
