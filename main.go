package main

import (
	"fmt"
	"log"
	"net/http"

	cmdCatalog "github.com/Bobybuu/zeno-speedy-services-sub001/cmd/catalog-service"
	cmdOrder "github.com/Bobybuu/zeno-speedy-services-sub001/cmd/order-service"
	cmdPayment "github.com/Bobybuu/zeno-speedy-services-sub001/cmd/payment-service"
	cmdUser "github.com/Bobybuu/zeno-speedy-services-sub001/cmd/user-service"
	cmdVendor "github.com/Bobybuu/zeno-speedy-services-sub001/cmd/vendor-service"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/cache"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/config"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/db"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/websocket"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/daraja"
)

func main() {
	logger.SetServiceName("zeno-api")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	pg, err := db.NewPostgres(
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pg.Close()

	if err := pg.RunMigrations("migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	rdb, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer rdb.Close()

	rmq, err := mq.NewRabbitMQ(
		cfg.RabbitMQ.Host, cfg.RabbitMQ.Port,
		cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Exchange,
	)
	if err != nil {
		log.Fatalf("rabbitmq error: %v", err)
	}
	defer rmq.Close()

	tokens := auth.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	blacklist := auth.NewBlacklist(rdb.Client, cfg.JWT.RefreshTTL)
	middleware := auth.NewMiddleware(tokens)

	mpesa := daraja.NewClient(daraja.Config{
		Environment:    cfg.Mpesa.Environment,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		Shortcode:      cfg.Mpesa.Shortcode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		InitiatorName:  cfg.Mpesa.InitiatorName,
	})

	hub := websocket.NewHub()
	mux := http.NewServeMux()

	cmdUser.Run(cfg, pg.Pool, rdb.Client, tokens, blacklist, middleware, mux)

	vendorDeps, err := cmdVendor.Run(pg.Pool, rmq, hub, mpesa, middleware, mux)
	if err != nil {
		log.Fatalf("vendor service error: %v", err)
	}

	catalogRepo := cmdCatalog.Run(pg.Pool, vendorDeps.Vendors, middleware, mux)
	orderRepo := cmdOrder.Run(pg.Pool, rmq, catalogRepo, vendorDeps.Products, vendorDeps.Vendors, middleware, mux)

	reconciler := cmdPayment.Run(
		cfg, pg.Pool, rmq,
		orderRepo, vendorDeps.Vendors, vendorDeps.Payouts,
		mpesa, middleware, mux,
	)
	defer reconciler.Stop()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	logger.Info("startup_complete", "API listening on "+addr, "", "")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
