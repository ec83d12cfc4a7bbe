package order_service

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	catalogrepo "github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/handler"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/service"
	vendorrepo "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/repository"
)

// Run wires carts and orders onto the shared mux and hands the order
// repository back so the payment flow can mark orders paid.
func Run(
	pool *pgxpool.Pool,
	rmq *mq.RabbitMQ,
	catalog *catalogrepo.CatalogRepository,
	products *vendorrepo.GasProductRepository,
	vendors *vendorrepo.VendorRepository,
	middleware *auth.Middleware,
	mux *http.ServeMux,
) *repository.OrderRepository {
	logger.Info("startup", "Starting order service...", "", "")

	orderRepo := repository.NewOrderRepository(pool)
	cartRepo := repository.NewCartRepository(pool)

	cartService := service.NewCartService(cartRepo, catalog, products)
	orderService := service.NewOrderService(orderRepo, cartRepo, cartRepo, catalog, products, vendors, rmq)
	handler.NewOrderHandler(cartService, orderService, middleware).RegisterRoutes(mux)

	logger.Info("startup_complete", "Order service routes registered", "", "")
	return orderRepo
}
