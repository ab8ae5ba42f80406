package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/jinxingedu/kindersync/internal/common"
	"github.com/jinxingedu/kindersync/internal/logging"
	"github.com/jinxingedu/kindersync/internal/models"
	"github.com/jinxingedu/kindersync/internal/storage"
	"github.com/jinxingedu/kindersync/internal/syncer"
)

// KeyPendingCodes is the reserved local key holding in-flight codes.
const KeyPendingCodes = "kt_pending_codes"

const (
	codeValidity = 5 * time.Minute
	resendAfter  = time.Minute
)

var phonePattern = regexp.MustCompile(`^1\d{10}$`)

// ValidPhone reports whether s looks like a mainland mobile number.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

type pendingCode struct {
	Code      string    `json:"code"`
	SentAt    time.Time `json:"sentAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPService issues and checks one-time login codes. Only phone numbers on
// the authorized list get a code: the list, not the code, is what keeps
// strangers out of the kindergarten's data.
type OTPService struct {
	store storage.Store
	log   logging.Logger

	// now is a test seam for the wall clock.
	now func() time.Time
}

func NewOTPService(store storage.Store, log logging.Logger) *OTPService {
	return &OTPService{store: store, log: log, now: time.Now}
}

// SendCode generates a 6-digit code for phone and returns it for delivery.
// It refuses unknown numbers and throttles repeat sends.
func (s *OTPService) SendCode(ctx context.Context, phone string) (string, error) {
	if !ValidPhone(phone) {
		return "", common.ErrorInvalidPhone
	}

	authorized, err := s.isAuthorized(ctx, phone)
	if err != nil {
		return "", err
	}
	if !authorized {
		return "", common.ErrorNotAuthorized
	}

	pending := map[string]pendingCode{}
	if _, err := storage.GetJSON(ctx, s.store, KeyPendingCodes, &pending); err != nil {
		return "", err
	}

	now := s.now()
	if p, ok := pending[phone]; ok && now.Sub(p.SentAt) < resendAfter {
		return "", common.ErrorSendThrottled
	}

	code, err := randomCode()
	if err != nil {
		return "", err
	}

	pending[phone] = pendingCode{
		Code:      code,
		SentAt:    now,
		ExpiresAt: now.Add(codeValidity),
	}
	if err := storage.SetJSON(ctx, s.store, KeyPendingCodes, pending); err != nil {
		return "", err
	}

	s.log.Info(ctx, "login code issued", "phone", phone)
	return code, nil
}

// VerifyCode checks a submitted code. A matching code is single-use.
func (s *OTPService) VerifyCode(ctx context.Context, phone, code string) error {
	pending := map[string]pendingCode{}
	ok, err := storage.GetJSON(ctx, s.store, KeyPendingCodes, &pending)
	if err != nil {
		return err
	}
	p, found := pending[phone]
	if !ok || !found {
		return common.ErrorCodeMismatch
	}

	if s.now().After(p.ExpiresAt) {
		delete(pending, phone)
		_ = storage.SetJSON(ctx, s.store, KeyPendingCodes, pending)
		return common.ErrorCodeExpired
	}
	if p.Code != code {
		return common.ErrorCodeMismatch
	}

	delete(pending, phone)
	return storage.SetJSON(ctx, s.store, KeyPendingCodes, pending)
}

func (s *OTPService) isAuthorized(ctx context.Context, phone string) (bool, error) {
	var list []models.Record
	ok, err := storage.GetJSON(ctx, s.store, syncer.KeyAuthorizedPhones, &list)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	for _, r := range list {
		if r.Phone() == phone {
			return true, nil
		}
	}
	return false, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
