package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

type RegisterRequest struct {
	Username            string           `json:"username"`
	Email               string           `json:"email"`
	PhoneNumber         string           `json:"phone_number"`
	Password            string           `json:"password"`
	UserType            model.UserType   `json:"user_type"`
	Location            string           `json:"location,omitempty"`
	PreferredOTPChannel model.OTPChannel `json:"preferred_otp_channel,omitempty"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTP         string `json:"otp"`
}

type ResendOTPRequest struct {
	PhoneNumber string           `json:"phone_number"`
	Channel     model.OTPChannel `json:"channel,omitempty"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	Username            string           `json:"username,omitempty"`
	Email               string           `json:"email,omitempty"`
	Location            string           `json:"location,omitempty"`
	PreferredOTPChannel model.OTPChannel `json:"preferred_otp_channel,omitempty"`
}

// AuthResponse mirrors the shape the storefront expects from every
// auth-mutating endpoint.
type AuthResponse struct {
	User                    model.User `json:"user"`
	Access                  string     `json:"access"`
	Refresh                 string     `json:"refresh"`
	Message                 string     `json:"message"`
	RequiresOTPVerification bool       `json:"requires_otp_verification,omitempty"`
}

type RefreshTokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required")
	}
	if r.Email != "" && !isValidEmail(r.Email) {
		return errors.New("invalid email format")
	}
	if !phone.IsValid(r.PhoneNumber) {
		return errors.New("phone_number must be a valid Kenyan number")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	if r.UserType == "" {
		r.UserType = model.TypeCustomer
	}
	if !r.UserType.Valid() {
		return fmt.Errorf("unknown user_type: %s", r.UserType)
	}
	if r.PreferredOTPChannel == "" {
		r.PreferredOTPChannel = model.ChannelWhatsApp
	}
	if !r.PreferredOTPChannel.Valid() {
		return fmt.Errorf("unknown preferred_otp_channel: %s", r.PreferredOTPChannel)
	}
	return nil
}

func (r *LoginRequest) Validate() error {
	if !phone.IsValid(r.PhoneNumber) {
		return errors.New("phone_number must be a valid Kenyan number")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

func (r *VerifyOTPRequest) Validate() error {
	if !phone.IsValid(r.PhoneNumber) {
		return errors.New("phone_number must be a valid Kenyan number")
	}
	if len(r.OTP) != 6 {
		return errors.New("otp must be a 6-digit code")
	}
	return nil
}

func (r *ResendOTPRequest) Validate() error {
	if !phone.IsValid(r.PhoneNumber) {
		return errors.New("phone_number must be a valid Kenyan number")
	}
	if r.Channel != "" && !r.Channel.Valid() {
		return fmt.Errorf("unknown channel: %s", r.Channel)
	}
	return nil
}

func isValidEmail(email string) bool {
	re := regexp.MustCompile(`^[\w._%+\-]+@[\w.\-]+\.[A-Za-z]{2,}$`)
	return re.MatchString(email)
}
