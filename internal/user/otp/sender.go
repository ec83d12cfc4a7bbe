package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/user/model"
)

// Sender delivers a verification code over the user's preferred channel.
type Sender interface {
	Send(ctx context.Context, phone, code string, channel model.OTPChannel) error
}

// DevSender logs the code instead of delivering it. Used when no SMS
// gateway credentials are configured.
type DevSender struct{}

func (DevSender) Send(_ context.Context, phone, code string, channel model.OTPChannel) error {
	logger.Info("otp_dev_send", fmt.Sprintf("DEV OTP for %s via %s: %s", phone, channel, code), "", "")
	return nil
}

// GatewaySender posts the code to an HTTP SMS gateway.
type GatewaySender struct {
	url      string
	token    string
	senderID string
	client   *http.Client
}

func NewGatewaySender(url, token, senderID string) *GatewaySender {
	return &GatewaySender{
		url:      url,
		token:    token,
		senderID: senderID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GatewaySender) Send(ctx context.Context, phone, code string, channel model.OTPChannel) error {
	payload := map[string]string{
		"to":      phone,
		"from":    g.senderID,
		"channel": string(channel),
		"body":    fmt.Sprintf("Your Zeno Roadside Connect verification code is: %s. This code expires in 10 minutes.", code),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("otp gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("otp gateway returned status %d", resp.StatusCode)
	}
	return nil
}
