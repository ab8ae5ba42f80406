package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jinxingedu/kindersync/internal/auth"
	"github.com/jinxingedu/kindersync/internal/config"
	"github.com/jinxingedu/kindersync/internal/models"
	"github.com/jinxingedu/kindersync/internal/storage"
	"github.com/jinxingedu/kindersync/internal/syncer"
)

// KeySessionToken is the reserved local key holding the session token.
const KeySessionToken = "kt_session_token"

// Login runs the one-time-code flow: phone, code, then the user object is
// built from the staff roster and persisted as the acting user.
func (a *App) Login(ctx context.Context) {
	phone, err := GetSimpleText(a.reader, "Phone number", a.out)
	if err != nil {
		return
	}

	code, err := a.otp.SendCode(ctx, phone)
	if err != nil {
		fmt.Fprintln(a.out, "cannot send code:", err)
		return
	}
	// stand-in for the SMS channel of the hosted deployment
	fmt.Fprintln(a.out, "verification code:", code)

	entered, err := GetSimpleText(a.reader, "Enter the 6-digit code", a.out)
	if err != nil {
		return
	}
	if err := a.otp.VerifyCode(ctx, phone, entered); err != nil {
		fmt.Fprintln(a.out, "login failed:", err)
		return
	}

	user := a.buildUser(ctx, phone)
	if err := a.resolver.SetCurrentUser(ctx, user); err != nil {
		fmt.Fprintln(a.out, "failed to persist user:", err)
		return
	}

	if a.config.SessionSecret != "" {
		token, err := auth.GenerateToken(phone, []byte(a.config.SessionSecret), a.config.SessionTTL)
		if err != nil {
			a.log.Warn(ctx, "failed to issue session token", "error", err)
		} else if err := storage.SetJSON(ctx, a.store, KeySessionToken, token); err != nil {
			a.log.Warn(ctx, "failed to persist session token", "error", err)
		}
	}

	fmt.Fprintf(a.out, "welcome, %s\n", user.Name)
}

// buildUser projects the staff roster record for phone into a UserInfo. An
// authorized phone without a roster entry still gets a minimal user; the
// permission filter then fails closed for it.
func (a *App) buildUser(ctx context.Context, phone string) models.UserInfo {
	user := models.UserInfo{ID: uuid.NewString(), Phone: phone, Name: phone}

	var roster []models.Record
	if _, err := storage.GetJSON(ctx, a.store, syncer.KeyStaff, &roster); err != nil {
		return user
	}
	for _, rec := range roster {
		if rec.Phone() != phone {
			continue
		}
		var member models.StaffMember
		if err := models.As(rec, &member); err != nil {
			break
		}
		user.ID = member.ID
		user.Name = member.Name
		user.Role = member.Role
		user.Campus = member.Campus
		user.AssignedClasses = member.Classes()
		break
	}
	return user
}

// Logout clears the acting user and the session token.
func (a *App) Logout(ctx context.Context) {
	if err := a.resolver.ClearCurrentUser(ctx); err != nil {
		fmt.Fprintln(a.out, "logout failed:", err)
		return
	}
	_ = a.store.Delete(ctx, KeySessionToken)
	fmt.Fprintln(a.out, "logged out")
}

// Configure interactively collects the bucket settings and writes them to
// kindersync.json. Credentials are entered without echo and only printed as
// the environment variables to export.
func (a *App) Configure(ctx context.Context) {
	prompts := []struct {
		label string
		field *string
	}{
		{"Bucket endpoint URL", &a.config.Endpoint},
		{"Bucket region", &a.config.Region},
		{"Bucket name", &a.config.Bucket},
		{"Object key prefix", &a.config.Prefix},
	}
	for _, p := range prompts {
		v, err := GetSimpleText(a.reader, fmt.Sprintf("%s [%s]", p.label, *p.field), a.out)
		if err != nil {
			return
		}
		if v != "" {
			*p.field = v
		}
	}

	keyID, err := GetSecret("Access key id", a.out)
	if err != nil {
		return
	}
	secret, err := GetSecret("Access key secret", a.out)
	if err != nil {
		return
	}
	if len(keyID) > 0 {
		a.config.AccessKeyID = string(keyID)
	}
	if len(secret) > 0 {
		a.config.AccessKeySecret = string(secret)
	}

	if err := config.SaveJSON(a.config, "kindersync.json"); err != nil {
		fmt.Fprintln(a.out, "failed to write kindersync.json:", err)
		return
	}
	fmt.Fprintln(a.out, "wrote kindersync.json")
	fmt.Fprintln(a.out, "export KINDERSYNC_ACCESS_KEY_ID and KINDERSYNC_ACCESS_KEY_SECRET to keep credentials out of the file")
}
