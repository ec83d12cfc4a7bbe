package model

import "time"

type UserType string

const (
	TypeCustomer UserType = "customer"
	TypeVendor   UserType = "vendor"
	TypeMechanic UserType = "mechanic"
	TypeAdmin    UserType = "admin"
)

func (t UserType) Valid() bool {
	switch t {
	case TypeCustomer, TypeVendor, TypeMechanic, TypeAdmin:
		return true
	}
	return false
}

// IsVendorLike reports whether the user type carries a vendor profile.
func (t UserType) IsVendorLike() bool {
	return t == TypeVendor || t == TypeMechanic
}

type OTPChannel string

const (
	ChannelWhatsApp OTPChannel = "whatsapp"
	ChannelVoice    OTPChannel = "voice"
	ChannelSMS      OTPChannel = "sms"
)

func (c OTPChannel) Valid() bool {
	switch c {
	case ChannelWhatsApp, ChannelVoice, ChannelSMS:
		return true
	}
	return false
}

type User struct {
	ID                  int64      `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	PhoneNumber         string     `json:"phone_number"`
	PasswordHash        string     `json:"-"`
	UserType            UserType   `json:"user_type"`
	Location            string     `json:"location"`
	IsVerified          bool       `json:"is_verified"`
	PhoneVerified       bool       `json:"phone_verified"`
	PreferredOTPChannel OTPChannel `json:"preferred_otp_channel"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
