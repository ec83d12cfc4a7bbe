package vendor_service

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/websocket"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/daraja"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/feed"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/handler"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/service"
)

// Deps are the vendor-side pieces other services depend on: the order
// flow resolves vendors and products, the payment flow credits earnings
// and settles payouts.
type Deps struct {
	Vendors  *repository.VendorRepository
	Products *repository.GasProductRepository
	Payouts  *service.PayoutService
}

// Run wires vendor profiles, gas products, reviews, payouts and the
// live event feed onto the shared mux.
func Run(
	pool *pgxpool.Pool,
	rmq *mq.RabbitMQ,
	hub *websocket.Hub,
	mpesa *daraja.Client,
	middleware *auth.Middleware,
	mux *http.ServeMux,
) (Deps, error) {
	logger.Info("startup", "Starting vendor service...", "", "")

	vendorRepo := repository.NewVendorRepository(pool)
	productRepo := repository.NewGasProductRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)
	payoutRepo := repository.NewPayoutRepository(pool)

	vendorService := service.NewVendorService(vendorRepo, productRepo, reviewRepo)
	payoutService := service.NewPayoutService(payoutRepo, vendorRepo, mpesa)

	handler.NewVendorHandler(vendorService, payoutService, middleware).RegisterRoutes(mux)

	vendorFeed := feed.NewFeed(hub, rmq, vendorRepo)
	vendorFeed.RegisterRoutes(mux, middleware)
	if err := vendorFeed.Start(); err != nil {
		return Deps{}, err
	}

	logger.Info("startup_complete", "Vendor service routes registered", "", "")
	return Deps{Vendors: vendorRepo, Products: productRepo, Payouts: payoutService}, nil
}
