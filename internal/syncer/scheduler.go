package syncer

import (
	"context"
	"sync"
	"verity/internal/providers"
	"verity/internal/reputation"
	"verity/internal/structures"

	"github.com/roylee0704/gron"
)

type SchedulerInterface interface {
	Init()
	Stop()
}

// Scheduler runs the periodic full resync and reputation recalculation.
// Both jobs share one mutex so a slow resync never overlaps a recalculation.
type Scheduler struct {
	config     *structures.Config
	logger     providers.Logger
	syncer     SyncerInterface
	reputation reputation.ServiceInterface
	cron       *gron.Cron
	opsMu      sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	if interval := s.config.Sync.ResyncInterval; interval > 0 {
		s.cron.AddFunc(gron.Every(interval), func() {
			s.opsMu.Lock()
			defer s.opsMu.Unlock()

			s.logger.Infof(providers.TypeSync, "Starting scheduled resync...")
			count, err := s.syncer.Resync(context.Background())
			if err != nil {
				s.logger.Errorf(providers.TypeSync, "Scheduled resync failed after %d articles: %s", count, err)
				return
			}
			s.logger.Infof(providers.TypeSync, "Scheduled resync finished, %d articles", count)
		})
	}

	if interval := s.config.Sync.RecalcInterval; interval > 0 {
		s.cron.AddFunc(gron.Every(interval), func() {
			s.opsMu.Lock()
			defer s.opsMu.Unlock()

			count, err := s.reputation.RecalculateAll()
			if err != nil {
				s.logger.Errorf(providers.TypeApp, "Scheduled recalculation failed: %s", err)
				return
			}
			s.logger.Infof(providers.TypeApp, "Recalculated reputation for %d validators", count)
		})
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func NewScheduler(config *structures.Config, logger providers.Logger, sync SyncerInterface, rep reputation.ServiceInterface) SchedulerInterface {
	return &Scheduler{
		config:     config,
		logger:     logger,
		syncer:     sync,
		reputation: rep,
	}
}
