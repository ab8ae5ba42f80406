// Package oss talks to the OSS-style remote object store holding the shared
// collections: signed time-limited GET URLs for anonymous reads and
// credentialed PUTs for writes.
package oss

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultExpiry is the signed-URL validity horizon.
const DefaultExpiry = time.Hour

// Signer produces signed, time-limited URLs authenticating GETs against the
// private bucket. The symmetric secret never leaves the device; only the
// derived signature is put on the wire.
//
// The content type passed to SignedURL must match exactly what the transport
// will actually send: the remote verifier includes content-type in its own
// signature check, and mismatches are the single largest source of 403s.
type Signer struct {
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Endpoint        string

	// now is a test seam for the wall clock.
	now func() time.Time
}

func NewSigner(endpoint, bucket, accessKeyID, accessKeySecret string) *Signer {
	return &Signer{
		AccessKeyID:     accessKeyID,
		AccessKeySecret: accessKeySecret,
		Bucket:          bucket,
		Endpoint:        endpoint,
		now:             time.Now,
	}
}

// StringToSign builds the canonical string:
//
//	VERB \n content-md5 (empty) \n content-type \n expires \n /bucket/resource
func (s *Signer) StringToSign(verb, contentType, expires, resource string) string {
	return verb + "\n\n" + contentType + "\n" + expires + "\n/" + s.Bucket + "/" + resource
}

// Sign computes base64(HMAC-SHA1(stringToSign, secret)).
func (s *Signer) Sign(stringToSign string) string {
	mac := hmac.New(sha1.New, []byte(s.AccessKeySecret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignedURL returns a GET URL valid until now+expiry, with the signature in
// the query string. Pure function of its inputs and the wall clock.
func (s *Signer) SignedURL(resource, contentType string, expiry time.Duration) string {
	expires := strconv.FormatInt(s.now().Add(expiry).Unix(), 10)
	signature := s.Sign(s.StringToSign(http.MethodGet, contentType, expires, resource))

	return fmt.Sprintf("%s/%s?OSSAccessKeyId=%s&Expires=%s&Signature=%s",
		s.Endpoint, resource,
		url.QueryEscape(s.AccessKeyID), expires, url.QueryEscape(signature))
}

// AuthorizationHeader returns the "OSS keyID:signature" header value for a
// header-authenticated request, with the RFC1123 date in the expires slot of
// the canonical string.
func (s *Signer) AuthorizationHeader(verb, contentType, date, resource string) string {
	return "OSS " + s.AccessKeyID + ":" + s.Sign(s.StringToSign(verb, contentType, date, resource))
}
