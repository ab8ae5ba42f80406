package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jinxingedu/kindersync/internal/common"
)

const exchangeTimeout = 10 * time.Second

// Broker exchanges a platform login code for the verified phone number
// behind it, through the deployment's cloud function. An empty URL disables
// the broker; clients then fall back to one-time codes.
type Broker struct {
	URL    string
	client *http.Client
}

func NewBroker(url string) *Broker {
	return &Broker{URL: url, client: &http.Client{}}
}

type exchangeRequest struct {
	Action string `json:"action"`
	Code   string `json:"code"`
}

type exchangeResponse struct {
	Phone       string `json:"phone"`
	PhoneNumber string `json:"phoneNumber"`
	Error       string `json:"errMsg,omitempty"`
}

// ExchangeCodeForPhone resolves a one-shot platform code to a phone number.
func (b *Broker) ExchangeCodeForPhone(ctx context.Context, code string) (string, error) {
	if b.URL == "" {
		return "", common.ErrorNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	body, err := json.Marshal(exchangeRequest{Action: "getPhoneNumber", Code: code})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", common.ErrorTransport, resp.StatusCode)
	}

	var out exchangeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode broker response: %w", err)
	}

	phone := out.Phone
	if phone == "" {
		phone = out.PhoneNumber
	}
	if !ValidPhone(phone) {
		return "", common.ErrorInvalidPhone
	}
	return phone, nil
}
