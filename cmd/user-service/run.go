package user_service

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/config"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/handler"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/otp"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/service"
)

// Run wires the auth stack onto the shared mux: registration, login,
// OTP verification and token lifecycle.
func Run(
	cfg *config.Config,
	pool *pgxpool.Pool,
	rdb *redis.Client,
	tokens *auth.Manager,
	blacklist *auth.Blacklist,
	middleware *auth.Middleware,
	mux *http.ServeMux,
) {
	logger.Info("startup", "Starting user service...", "", "")

	userRepo := repository.NewUserRepository(pool)
	otpStore := otp.NewStore(rdb, time.Duration(cfg.OTP.ExpiryMinutes)*time.Minute)
	otpLimiter := otp.NewRateLimiter(rdb)

	var sender otp.Sender = otp.DevSender{}
	if cfg.OTP.SenderKind == "sms" && cfg.OTP.GatewayURL != "" {
		sender = otp.NewGatewaySender(cfg.OTP.GatewayURL, cfg.OTP.GatewayToken, cfg.OTP.SenderID)
	}

	authService := service.NewAuthService(userRepo, tokens, blacklist, otpStore, otpLimiter, sender)
	handler.NewAuthHandler(authService, middleware).RegisterRoutes(mux)

	logger.Info("startup_complete", "User service routes registered", "", "")
}
