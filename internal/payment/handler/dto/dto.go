package dto

import (
	"errors"
	"fmt"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

type InitiatePaymentRequest struct {
	OrderID       int64        `json:"order_id"`
	PhoneNumber   string       `json:"phone_number"`
	PaymentMethod model.Method `json:"payment_method"`
}

func (r *InitiatePaymentRequest) Validate() error {
	if r.OrderID == 0 {
		return errors.New("order_id is required")
	}
	if !phone.IsValid(r.PhoneNumber) {
		return errors.New("phone_number must be a valid Kenyan number")
	}
	if r.PaymentMethod == "" {
		r.PaymentMethod = model.MethodMpesa
	}
	if !r.PaymentMethod.Valid() {
		return fmt.Errorf("unknown payment_method: %s", r.PaymentMethod)
	}
	return nil
}

type RetryPaymentRequest struct {
	PhoneNumber string `json:"phone_number,omitempty"`
}

type InitiatePaymentResponse struct {
	Payment         model.Payment `json:"payment"`
	CustomerMessage string        `json:"customer_message,omitempty"`
}
