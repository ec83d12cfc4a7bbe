package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/otp"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many OTP requests")
	ErrOTPSendFailed      = errors.New("failed to send OTP")
)

type UserRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateUser(ctx context.Context, tx pgx.Tx, user model.User) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByPhone(ctx context.Context, phone string) (model.User, error)
	MarkPhoneVerified(ctx context.Context, id int64) error
	UpdateProfile(ctx context.Context, id int64, username, email, location string, channel model.OTPChannel) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

// OTPStore issues and checks one-time codes keyed by MSISDN.
type OTPStore interface {
	Issue(ctx context.Context, phone string) (string, error)
	Verify(ctx context.Context, phone, code string) error
}

// OTPLimiter throttles how often codes go out to one number.
type OTPLimiter interface {
	IsLimited(ctx context.Context, phone string) (bool, time.Duration, error)
	Record(ctx context.Context, phone string) error
}

// TokenBlacklist revokes refresh tokens until they expire.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type AuthService struct {
	userRepo   UserRepository
	tokens     *auth.Manager
	blacklist  TokenBlacklist
	otpStore   OTPStore
	otpLimiter OTPLimiter
	otpSender  otp.Sender
}

func NewAuthService(
	userRepo UserRepository,
	tokens *auth.Manager,
	blacklist TokenBlacklist,
	otpStore OTPStore,
	otpLimiter OTPLimiter,
	otpSender otp.Sender,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		blacklist:  blacklist,
		otpStore:   otpStore,
		otpLimiter: otpLimiter,
		otpSender:  otpSender,
	}
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error) {
	action := "register_user"

	if err := req.Validate(); err != nil {
		logger.Warn(action, "validation failed", "", "", err.Error())
		return dto.AuthResponse{}, fmt.Errorf("validation error: %w", err)
	}

	msisdn, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("validation error: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error(action, "failed to hash password", "", "", err.Error())
		return dto.AuthResponse{}, err
	}

	tx, err := s.userRepo.BeginTx(ctx)
	if err != nil {
		logger.Error(action, "failed to start transaction", "", "", err.Error())
		return dto.AuthResponse{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn(action, "rollback failed", "", "", err.Error())
		}
	}()

	user := model.User{
		Username:            req.Username,
		Email:               req.Email,
		PhoneNumber:         msisdn,
		PasswordHash:        string(hash),
		UserType:            req.UserType,
		Location:            req.Location,
		PreferredOTPChannel: req.PreferredOTPChannel,
	}

	created, err := s.userRepo.CreateUser(ctx, tx, user)
	if err != nil {
		logger.Error(action, "failed to create user", "", "", err.Error())
		return dto.AuthResponse{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error(action, "failed to commit transaction", "", "", err.Error())
		return dto.AuthResponse{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	access, refresh, err := s.tokens.GenerateTokens(created.ID, string(created.UserType))
	if err != nil {
		logger.Error(action, "failed to generate tokens", "", "", err.Error())
		return dto.AuthResponse{}, err
	}

	// OTP delivery is best effort; registration already succeeded.
	if err := s.sendOTP(ctx, created.PhoneNumber, created.PreferredOTPChannel); err != nil {
		logger.Warn(action, "failed to send registration OTP", "", "", err.Error())
	}

	logger.Info(action, fmt.Sprintf("user %d registered", created.ID), "", "")
	return dto.AuthResponse{
		User:                    created,
		Access:                  access,
		Refresh:                 refresh,
		Message:                 "User registered successfully. Please verify your phone number with the OTP sent.",
		RequiresOTPVerification: created.PhoneNumber != "",
	}, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	action := "login_user"

	if err := req.Validate(); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("validation error: %w", err)
	}

	msisdn, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("validation error: %w", err)
	}

	user, err := s.userRepo.GetByPhone(ctx, msisdn)
	if err != nil {
		logger.Warn(action, "user lookup failed", "", "", err.Error())
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		logger.Warn(action, fmt.Sprintf("invalid credentials for user %d", user.ID), "", "", "")
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	access, refresh, err := s.tokens.GenerateTokens(user.ID, string(user.UserType))
	if err != nil {
		logger.Error(action, "failed to generate tokens", "", "", err.Error())
		return dto.AuthResponse{}, err
	}

	logger.Info(action, fmt.Sprintf("user %d logged in", user.ID), "", "")
	return dto.AuthResponse{
		User:    user,
		Access:  access,
		Refresh: refresh,
		Message: "Login successful",
	}, nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, req dto.VerifyOTPRequest) (dto.AuthResponse, error) {
	action := "verify_otp"

	if err := req.Validate(); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("validation error: %w", err)
	}

	msisdn, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("validation error: %w", err)
	}

	user, err := s.userRepo.GetByPhone(ctx, msisdn)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	if err := s.otpStore.Verify(ctx, msisdn, req.OTP); err != nil {
		logger.Warn(action, fmt.Sprintf("otp rejected for user %d", user.ID), "", "", err.Error())
		return dto.AuthResponse{}, err
	}

	if err := s.userRepo.MarkPhoneVerified(ctx, user.ID); err != nil {
		logger.Error(action, "failed to mark phone verified", "", "", err.Error())
		return dto.AuthResponse{}, err
	}
	user.PhoneVerified = true
	user.IsVerified = true

	access, refresh, err := s.tokens.GenerateTokens(user.ID, string(user.UserType))
	if err != nil {
		return dto.AuthResponse{}, err
	}

	logger.Info(action, fmt.Sprintf("phone verified for user %d", user.ID), "", "")
	return dto.AuthResponse{
		User:    user,
		Access:  access,
		Refresh: refresh,
		Message: "Phone number verified successfully",
	}, nil
}

func (s *AuthService) ResendOTP(ctx context.Context, req dto.ResendOTPRequest) error {
	action := "resend_otp"

	if err := req.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	msisdn, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	user, err := s.userRepo.GetByPhone(ctx, msisdn)
	if err != nil {
		return err
	}

	channel := user.PreferredOTPChannel
	if req.Channel != "" {
		channel = req.Channel
	}

	limited, retryAfter, err := s.otpLimiter.IsLimited(ctx, msisdn)
	if err != nil {
		return err
	}
	if limited {
		logger.Warn(action, fmt.Sprintf("rate limited, retry in %s", retryAfter), "", "", "")
		return fmt.Errorf("%w: retry in %s", ErrRateLimited, retryAfter.Round(time.Second))
	}

	if err := s.sendOTP(ctx, msisdn, channel); err != nil {
		return err
	}

	logger.Info(action, fmt.Sprintf("otp resent to user %d via %s", user.ID, channel), "", "")
	return nil
}

func (s *AuthService) sendOTP(ctx context.Context, msisdn string, channel model.OTPChannel) error {
	code, err := s.otpStore.Issue(ctx, msisdn)
	if err != nil {
		return err
	}
	if err := s.otpLimiter.Record(ctx, msisdn); err != nil {
		return err
	}
	if err := s.otpSender.Send(ctx, msisdn, code, channel); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPSendFailed, err)
	}
	return nil
}

func (s *AuthService) RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (dto.RefreshTokenResponse, error) {
	action := "refresh_token"

	claims, err := s.tokens.ParseToken(req.RefreshToken)
	if err != nil {
		logger.Warn(action, "invalid refresh token", "", "", err.Error())
		return dto.RefreshTokenResponse{}, fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.Type != auth.TokenTypeRefresh {
		return dto.RefreshTokenResponse{}, errors.New("provided token is not a refresh token")
	}

	revoked, err := s.blacklist.IsRevoked(ctx, req.RefreshToken)
	if err != nil {
		return dto.RefreshTokenResponse{}, err
	}
	if revoked {
		logger.Warn(action, fmt.Sprintf("revoked refresh token for user %d", claims.UserID), "", "", "")
		return dto.RefreshTokenResponse{}, errors.New("refresh token has been revoked")
	}

	access, refresh, err := s.tokens.GenerateTokens(claims.UserID, claims.UserType)
	if err != nil {
		logger.Error(action, "failed to generate tokens", "", "", err.Error())
		return dto.RefreshTokenResponse{}, err
	}

	return dto.RefreshTokenResponse{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) Logout(ctx context.Context, req dto.LogoutRequest) error {
	if req.RefreshToken == "" {
		return nil
	}
	if _, err := s.tokens.ParseToken(req.RefreshToken); err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}
	return s.blacklist.Revoke(ctx, req.RefreshToken)
}

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req dto.UpdateProfileRequest) (model.User, error) {
	if req.PreferredOTPChannel != "" && !req.PreferredOTPChannel.Valid() {
		return model.User{}, fmt.Errorf("unknown preferred_otp_channel: %s", req.PreferredOTPChannel)
	}
	return s.userRepo.UpdateProfile(ctx, userID, req.Username, req.Email, req.Location, req.PreferredOTPChannel)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.List(ctx)
}
