package payment_service

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/config"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	orderrepo "github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/daraja"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/handler"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/service"
	vendorrepo "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/repository"
	vendorservice "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/service"
)

// Run wires M-Pesa payments onto the shared mux and starts the
// reconciler that times out abandoned STK pushes. The caller stops the
// returned reconciler on shutdown.
func Run(
	cfg *config.Config,
	pool *pgxpool.Pool,
	rmq *mq.RabbitMQ,
	orders *orderrepo.OrderRepository,
	vendors *vendorrepo.VendorRepository,
	payouts *vendorservice.PayoutService,
	mpesa *daraja.Client,
	middleware *auth.Middleware,
	mux *http.ServeMux,
) *service.Reconciler {
	logger.Info("startup", "Starting payment service...", "", "")

	paymentRepo := repository.NewPaymentRepository(pool)

	// Configured as a percentage, consumed as a fraction.
	paymentService := service.NewPaymentService(
		paymentRepo, orders, vendors, mpesa, payouts, rmq,
		cfg.Mpesa.CommissionRate/100,
	)
	handler.NewPaymentHandler(paymentService, middleware).RegisterRoutes(mux)

	reconciler := service.NewReconciler(paymentService)
	if err := reconciler.Start(); err != nil {
		logger.Error("startup", "failed to start payment reconciler", "", "", err.Error())
	}

	logger.Info("startup_complete", "Payment service routes registered", "", "")
	return reconciler
}
