package catalog_service

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/handler"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/service"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	vendorrepo "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/repository"
)

// Run wires the service catalog (categories, roadside and oxygen
// services, location search) onto the shared mux and hands the catalog
// repository back for the order flow.
func Run(
	pool *pgxpool.Pool,
	vendors *vendorrepo.VendorRepository,
	middleware *auth.Middleware,
	mux *http.ServeMux,
) *repository.CatalogRepository {
	logger.Info("startup", "Starting catalog service...", "", "")

	catalogRepo := repository.NewCatalogRepository(pool)
	catalogService := service.NewCatalogService(catalogRepo, vendors)
	handler.NewCatalogHandler(catalogService, middleware).RegisterRoutes(mux)

	logger.Info("startup_complete", "Catalog service routes registered", "", "")
	return catalogRepo
}
