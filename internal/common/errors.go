package common

import "errors"

var (

	// sync subsystem
	ErrorNotConfigured = errors.New("cloud storage is not configured")
	ErrorSyncInFlight  = errors.New("a sync is already running")

	// transport
	ErrorPermission = errors.New("permission error (403)")
	ErrorTransport  = errors.New("network request failed")

	// upload guard
	ErrorCloudNotLoaded = errors.New("cloud data has not been loaded this session")
	ErrorBelowFloor     = errors.New("too few records, refusing upload")
	ErrorAboveCeiling   = errors.New("abnormal record count, refusing upload")

	// collections
	ErrorUnknownCollection = errors.New("unknown collection")

	// auth
	ErrorInvalidToken   = errors.New("invalid token")
	ErrorInvalidPhone   = errors.New("invalid phone number")
	ErrorCodeExpired    = errors.New("verification code expired")
	ErrorCodeMismatch   = errors.New("verification code mismatch")
	ErrorNotAuthorized  = errors.New("phone number is not authorized")
	ErrorSendThrottled  = errors.New("code was sent recently, try again later")
	ErrorNotLoggedIn    = errors.New("no user is logged in")
	ErrorNoPermission   = errors.New("no permission for this operation")
	ErrorUserNotFound   = errors.New("user not found")
)
