package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
)

// processingTimeout mirrors the storefront's polling ceiling: 40 polls at
// 3 seconds. Anything still processing after that was abandoned on the
// handset.
const processingTimeout = 120 * time.Second

// Reconciler times out abandoned payments on a schedule.
type Reconciler struct {
	payments *PaymentService
	cron     *cron.Cron
}

func NewReconciler(payments *PaymentService) *Reconciler {
	return &Reconciler{
		payments: payments,
		cron:     cron.New(),
	}
}

// Start schedules the sweep every minute. Call Stop on shutdown.
func (r *Reconciler) Start() error {
	_, err := r.cron.AddFunc("* * * * *", r.sweep)
	if err != nil {
		return err
	}
	r.cron.Start()
	logger.Info("reconciler_start", "payment reconciler scheduled every minute", "", "")
	return nil
}

func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reconciler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed, err := r.payments.TimeoutStale(ctx, processingTimeout)
	if err != nil {
		logger.Error("reconcile_payments", "sweep failed", "", "", err.Error())
		return
	}
	if failed > 0 {
		logger.Info("reconcile_payments", "stale payments timed out", "", "")
	}
}
