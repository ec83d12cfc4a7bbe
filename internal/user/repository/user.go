package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/model"
)

var ErrNotFound = errors.New("user not found")

const userColumns = `
	id, username, email, phone_number, password_hash, user_type, location,
	is_verified, phone_verified, preferred_otp_channel, created_at, updated_at
`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PhoneNumber,
		&u.PasswordHash,
		&u.UserType,
		&u.Location,
		&u.IsVerified,
		&u.PhoneVerified,
		&u.PreferredOTPChannel,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, tx pgx.Tx, user model.User) (model.User, error) {
	query := `
		INSERT INTO users (username, email, phone_number, password_hash, user_type,
		                   location, preferred_otp_channel)
		VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, ''), 'customer'), $6,
		        COALESCE(NULLIF($7, ''), 'whatsapp'))
		RETURNING ` + userColumns

	created, err := scanUser(tx.QueryRow(
		ctx,
		query,
		user.Username,
		user.Email,
		user.PhoneNumber,
		user.PasswordHash,
		string(user.UserType),
		user.Location,
		string(user.PreferredOTPChannel),
	))
	if err != nil {
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to fetch user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to fetch user by phone: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to fetch user by username: %w", err)
	}
	return u, nil
}

func (r *UserRepository) MarkPhoneVerified(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET phone_verified = true, is_verified = true, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark phone verified: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, username, email, location string, channel model.OTPChannel) (model.User, error) {
	query := `
		UPDATE users
		SET username = COALESCE(NULLIF($2, ''), username),
		    email = COALESCE(NULLIF($3, ''), email),
		    location = COALESCE(NULLIF($4, ''), location),
		    preferred_otp_channel = COALESCE(NULLIF($5, ''), preferred_otp_channel),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, id, username, email, location, string(channel)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
