// services/scheduler.go
package services

import (
	"time"

	"github.com/alphabatem/common/context"
	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// SchedulerService runs the periodic maintenance the request path shouldn't
// pay for: re-priming the leaderboard cache and sweeping long-expired
// subscription rows.
type SchedulerService struct {
	context.DefaultService

	scheduler   *gocron.Scheduler
	sqlSvc      *PostgresService
	progressSvc *ProgressService
}

const SCHEDULER_SVC = "scheduler_svc"

func (svc SchedulerService) Id() string {
	return SCHEDULER_SVC
}

func (svc *SchedulerService) Configure(ctx *context.Context) error {
	svc.scheduler = gocron.NewScheduler(time.UTC)
	return svc.DefaultService.Configure(ctx)
}

func (svc *SchedulerService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.progressSvc = svc.Service(PROGRESS_SVC).(*ProgressService)

	if _, err := svc.scheduler.Every(5).Minutes().Do(svc.refreshLeaderboard); err != nil {
		return err
	}
	if _, err := svc.scheduler.Every(1).Day().At("03:00").Do(svc.sweepExpiredSubscriptions); err != nil {
		return err
	}

	svc.scheduler.StartAsync()
	log.Info("Maintenance scheduler started")
	return nil
}

func (svc *SchedulerService) Shutdown() {
	if svc.scheduler != nil {
		svc.scheduler.Stop()
	}
}

func (svc *SchedulerService) refreshLeaderboard() {
	if _, err := svc.progressSvc.RefreshLeaderboard(); err != nil {
		log.WithError(err).Warn("Leaderboard refresh failed")
	}
}

func (svc *SchedulerService) sweepExpiredSubscriptions() {
	cutoff := time.Now().AddDate(0, -3, 0)
	deleted, err := svc.sqlSvc.DeleteExpiredSubscriptions(cutoff)
	if err != nil {
		log.WithError(err).Warn("Subscription sweep failed")
		return
	}
	if deleted > 0 {
		log.WithField("deleted", deleted).Info("Swept expired subscriptions")
	}
}
