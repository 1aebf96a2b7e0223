package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mirrorledger/textoracle/internal/client"
	"github.com/mirrorledger/textoracle/internal/ledger"
	"github.com/mirrorledger/textoracle/pkg/icron"
	"github.com/mirrorledger/textoracle/pkg/log"
)

// ReclaimScheduler periodically sweeps the contract's accumulated retained
// fees to the creator. Jobs that owners never purge are NOT reclaimed here:
// orphaned deposits are an acknowledged leak of the protocol, not something
// the operator may quietly confiscate.
type ReclaimScheduler struct {
	proxy    *client.Proxy
	operator ledger.Signer
	expr     string
	cron     *cron.Cron
}

func NewReclaimScheduler(svc ledger.Service, appID uint64, operator ledger.Signer, expr string) *ReclaimScheduler {
	return &ReclaimScheduler{
		proxy:    client.NewProxy(svc, appID),
		operator: operator,
		expr:     expr,
		cron:     cron.New(),
	}
}

func (s *ReclaimScheduler) Start() error {
	if info, err := icron.GetTriggerInfo(s.expr, time.Now()); err == nil {
		log.Info("Fee reclaim scheduled (%s), next run in %s", s.expr, info.TimeUntilNext.Round(time.Second))
	}

	if _, err := s.cron.AddFunc(s.expr, s.reclaim); err != nil {
		return fmt.Errorf("schedule fee reclaim: %w", err)
	}
	s.cron.Start()
	return nil
}

func (s *ReclaimScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// reclaim is also callable directly, e.g. from an operator endpoint.
func (s *ReclaimScheduler) reclaim() {
	if err := s.proxy.ReclaimFees(context.Background(), s.operator, "scheduled fee reclaim"); err != nil {
		log.Error("Fee reclaim failed: %v", err)
		return
	}
	log.Info("Fee reclaim submitted")
}
