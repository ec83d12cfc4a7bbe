package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/otp"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/repository"
)

func init() {
	logger.SetOutput(io.Discard)
}

// fakeTx satisfies pgx.Tx; the user fakes ignore it.
type fakeTx struct{}

func (fakeTx) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }
func (fakeTx) Commit(context.Context) error          { return nil }
func (fakeTx) Rollback(context.Context) error        { return nil }
func (fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { panic("not implemented") }
func (fakeTx) LargeObjects() pgx.LargeObjects                         { panic("not implemented") }
func (fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { panic("not implemented") }
func (fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { panic("not implemented") }
func (fakeTx) Conn() *pgx.Conn                                         { return nil }

type fakeUserRepo struct {
	nextID int64
	users  map[int64]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User)}
}

func (f *fakeUserRepo) BeginTx(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (f *fakeUserRepo) CreateUser(_ context.Context, _ pgx.Tx, user model.User) (model.User, error) {
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = &user
	return user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (model.User, error) {
	if u, ok := f.users[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByPhone(_ context.Context, phone string) (model.User, error) {
	for _, u := range f.users {
		if u.PhoneNumber == phone {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserRepo) MarkPhoneVerified(_ context.Context, id int64) error {
	f.users[id].PhoneVerified = true
	f.users[id].IsVerified = true
	return nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id int64, username, email, location string, channel model.OTPChannel) (model.User, error) {
	u := f.users[id]
	if username != "" {
		u.Username = username
	}
	if email != "" {
		u.Email = email
	}
	if location != "" {
		u.Location = location
	}
	if channel != "" {
		u.PreferredOTPChannel = channel
	}
	return *u, nil
}

func (f *fakeUserRepo) List(context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

type fakeOTPStore struct {
	codes map[string]string
}

func (f *fakeOTPStore) Issue(_ context.Context, phone string) (string, error) {
	f.codes[phone] = "123456"
	return "123456", nil
}

func (f *fakeOTPStore) Verify(_ context.Context, phone, code string) error {
	stored, ok := f.codes[phone]
	if !ok {
		return otp.ErrCodeExpired
	}
	if stored != code {
		return otp.ErrCodeMismatch
	}
	delete(f.codes, phone)
	return nil
}

type fakeOTPLimiter struct {
	limited bool
	records int
}

func (f *fakeOTPLimiter) IsLimited(context.Context, string) (bool, time.Duration, error) {
	return f.limited, 30 * time.Second, nil
}

func (f *fakeOTPLimiter) Record(context.Context, string) error {
	f.records++
	return nil
}

type fakeBlacklist struct {
	revoked map[string]bool
}

func (f *fakeBlacklist) Revoke(_ context.Context, token string) error {
	f.revoked[token] = true
	return nil
}

func (f *fakeBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	return f.revoked[token], nil
}

type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) Send(_ context.Context, phone, code string, _ model.OTPChannel) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, phone)
	return nil
}

func newAuthFixture() (*AuthService, *fakeUserRepo, *fakeOTPStore, *fakeOTPLimiter, *recordingSender) {
	users := newFakeUserRepo()
	store := &fakeOTPStore{codes: make(map[string]string)}
	limiter := &fakeOTPLimiter{}
	sender := &recordingSender{}
	tokens := auth.NewManager("test-secret", time.Hour, 24*time.Hour)
	blacklist := &fakeBlacklist{revoked: make(map[string]bool)}
	svc := NewAuthService(users, tokens, blacklist, store, limiter, sender)
	return svc, users, store, limiter, sender
}

func register(t *testing.T, svc *AuthService) dto.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username:    "wanjiku",
		PhoneNumber: "0712345678",
		Password:    "hunter2hunter2",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterNormalizesPhoneAndSendsOTP(t *testing.T) {
	svc, users, _, _, sender := newAuthFixture()

	resp := register(t, svc)

	assert.Equal(t, "254712345678", resp.User.PhoneNumber)
	assert.Equal(t, model.TypeCustomer, resp.User.UserType, "role defaults to customer")
	assert.NotEmpty(t, resp.Access)
	assert.NotEmpty(t, resp.Refresh)
	assert.True(t, resp.RequiresOTPVerification)
	assert.Equal(t, []string{"254712345678"}, sender.sent)

	stored, err := users.GetByPhone(context.Background(), "254712345678")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", stored.PasswordHash, "password must be hashed at rest")
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username:    "wanjiku",
		PhoneNumber: "0712345678",
		Password:    "short",
	})
	assert.Error(t, err)
}

func TestRegisterSurvivesOTPSendFailure(t *testing.T) {
	svc, _, _, _, sender := newAuthFixture()
	sender.err = errors.New("gateway down")

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username:    "wanjiku",
		PhoneNumber: "0712345678",
		Password:    "hunter2hunter2",
	})
	require.NoError(t, err, "registration must not fail on OTP delivery")
	assert.NotZero(t, resp.User.ID)
}

func TestLoginAcceptsAnyPhoneFormat(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	register(t, svc)

	for _, number := range []string{"0712345678", "254712345678", "+254712345678"} {
		resp, err := svc.Login(context.Background(), dto.LoginRequest{
			PhoneNumber: number,
			Password:    "hunter2hunter2",
		})
		require.NoError(t, err, "login with %s", number)
		assert.NotEmpty(t, resp.Access)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	register(t, svc)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		PhoneNumber: "0712345678",
		Password:    "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnknownPhone(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		PhoneNumber: "0712345678",
		Password:    "hunter2hunter2",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown numbers look like bad credentials")
}

func TestVerifyOTPMarksPhoneVerified(t *testing.T) {
	svc, users, _, _, _ := newAuthFixture()
	register(t, svc)

	resp, err := svc.VerifyOTP(context.Background(), dto.VerifyOTPRequest{
		PhoneNumber: "0712345678",
		OTP:         "123456",
	})
	require.NoError(t, err)
	assert.True(t, resp.User.PhoneVerified)

	stored, err := users.GetByPhone(context.Background(), "254712345678")
	require.NoError(t, err)
	assert.True(t, stored.PhoneVerified)
}

func TestVerifyOTPRejectsWrongCode(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	register(t, svc)

	_, err := svc.VerifyOTP(context.Background(), dto.VerifyOTPRequest{
		PhoneNumber: "0712345678",
		OTP:         "654321",
	})
	assert.ErrorIs(t, err, otp.ErrCodeMismatch)
}

func TestVerifyOTPCodeIsSingleUse(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	register(t, svc)
	ctx := context.Background()

	_, err := svc.VerifyOTP(ctx, dto.VerifyOTPRequest{PhoneNumber: "0712345678", OTP: "123456"})
	require.NoError(t, err)

	_, err = svc.VerifyOTP(ctx, dto.VerifyOTPRequest{PhoneNumber: "0712345678", OTP: "123456"})
	assert.ErrorIs(t, err, otp.ErrCodeExpired)
}

func TestResendOTPHonoursRateLimit(t *testing.T) {
	svc, _, _, limiter, sender := newAuthFixture()
	register(t, svc)
	limiter.limited = true

	err := svc.ResendOTP(context.Background(), dto.ResendOTPRequest{PhoneNumber: "0712345678"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, sender.sent, 1, "only the registration OTP went out")
}

func TestRefreshTokenRotatesPair(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	resp := register(t, svc)

	rotated, err := svc.RefreshToken(context.Background(), dto.RefreshTokenRequest{
		RefreshToken: resp.Refresh,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.Access)
	assert.NotEmpty(t, rotated.Refresh)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	resp := register(t, svc)

	_, err := svc.RefreshToken(context.Background(), dto.RefreshTokenRequest{
		RefreshToken: resp.Access,
	})
	assert.Error(t, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	resp := register(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Logout(ctx, dto.LogoutRequest{RefreshToken: resp.Refresh}))

	_, err := svc.RefreshToken(ctx, dto.RefreshTokenRequest{RefreshToken: resp.Refresh})
	assert.Error(t, err, "revoked refresh token must not mint new tokens")
}
