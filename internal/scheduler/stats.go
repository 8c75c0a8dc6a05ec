package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// LoanCounter is the part of the loan service the statistics job reads
type LoanCounter interface {
	CountLoans(ctx context.Context) (int, error)
}

// StatsJob logs the size of the loan portfolio
type StatsJob struct {
	loans   LoanCounter
	timeout time.Duration
}

func NewStatsJob(loans LoanCounter, timeout time.Duration) *StatsJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StatsJob{loans: loans, timeout: timeout}
}

// Run implements cron.Job
func (j *StatsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.Collect(ctx); err != nil {
		log.Error().Err(err).Msg("Portfolio statistics job failed")
	}
}

// Collect counts the registered loans and logs the result
func (j *StatsJob) Collect(ctx context.Context) (int, error) {
	count, err := j.loans.CountLoans(ctx)
	if err != nil {
		return 0, err
	}

	log.Info().Int("loans", count).Msg("Portfolio statistics")
	return count, nil
}

// New builds a cron scheduler in the given timezone using standard five-field specs
func New(loc *time.Location) *cron.Cron {
	return cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
}

// RegisterStatsJob schedules the statistics job on spec
func RegisterStatsJob(c *cron.Cron, spec string, job *StatsJob) (cron.EntryID, error) {
	return c.AddJob(spec, job)
}
