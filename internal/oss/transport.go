package oss

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/jinxingedu/kindersync/internal/common"
	"github.com/jinxingedu/kindersync/internal/config"
	"github.com/jinxingedu/kindersync/internal/logging"
)

// Test seams around the AWS SDK, so the PUT path can be exercised without a
// live bucket.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
)

// Result is the outcome of a collection download.
//
// Success with nil Data means the object does not exist remotely. Absence is
// an ordinary state for a collection that was never uploaded, not an error.
type Result struct {
	Success bool
	Data    []byte
	Err     error
}

// Transport reads and writes collection documents in the remote bucket.
//
// Reads go through plain HTTP with a three-step fallback chain (public URL,
// then two signed-URL variants) because the bucket's ACL and the verifier's
// content-type handling differ between deployments. Writes go through the
// credentialed S3-compatible API.
type Transport struct {
	signer *Signer
	region string
	bucket string

	publicTimeout time.Duration
	signedTimeout time.Duration
	attemptPause  time.Duration

	client *http.Client
	log    logging.Logger
}

func NewTransport(cfg *config.Config, log logging.Logger) *Transport {
	return &Transport{
		signer:        NewSigner(cfg.Endpoint, cfg.Bucket, cfg.AccessKeyID, cfg.AccessKeySecret),
		region:        cfg.Region,
		bucket:        cfg.Bucket,
		publicTimeout: cfg.PublicTimeout,
		signedTimeout: cfg.SignedTimeout,
		attemptPause:  cfg.AttemptPause,
		client:        &http.Client{},
		log:           log,
	}
}

// attempt describes one step of the GET fallback chain.
type attempt struct {
	signed      bool
	contentType string
	timeout     time.Duration
}

func (t *Transport) attempts() []attempt {
	return []attempt{
		{signed: false, contentType: "", timeout: t.publicTimeout},
		{signed: true, contentType: "application/json", timeout: t.signedTimeout},
		{signed: true, contentType: "", timeout: t.signedTimeout},
	}
}

var errAttemptFailed = errors.New("download attempt failed")

// Get downloads one object, walking the fallback chain until an attempt
// returns HTTP 200 with a valid JSON body. Any other status moves on to the
// next attempt. After the chain is exhausted the final attempt decides the
// outcome: 404 means the object simply is not there (Success with nil Data),
// 403 is a permission error, anything else is a transport error. A
// network-level failure on the final attempt is a transport error even when
// an earlier attempt reached HTTP.
func (t *Transport) Get(ctx context.Context, resource string) Result {
	attempts := t.attempts()

	var (
		idx        int
		lastStatus int
		lastErr    error
		body       []byte
	)

	backoff := retry.WithMaxRetries(uint64(len(attempts)-1), retry.NewConstant(t.attemptPause))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		a := attempts[idx]
		data, status, err := t.tryGet(ctx, resource, a)
		if err == nil {
			body = data
			return nil
		}

		t.log.Debug(ctx, "download attempt failed",
			"resource", resource, "signed", a.signed, "contentType", a.contentType,
			"status", status, "error", err)

		lastStatus = status
		lastErr = err
		idx++
		if idx < len(attempts) {
			return retry.RetryableError(errAttemptFailed)
		}
		return errAttemptFailed
	})

	if err == nil {
		return Result{Success: true, Data: body}
	}
	if ctx.Err() != nil {
		return Result{Err: fmt.Errorf("%w: %v", common.ErrorTransport, ctx.Err())}
	}

	switch lastStatus {
	case http.StatusNotFound:
		return Result{Success: true}
	case http.StatusForbidden:
		return Result{Err: common.ErrorPermission}
	case 0:
		return Result{Err: fmt.Errorf("%w: %v", common.ErrorTransport, lastErr)}
	default:
		return Result{Err: fmt.Errorf("%w: status %d: %v", common.ErrorTransport, lastStatus, lastErr)}
	}
}

// tryGet performs a single attempt. A non-200 status or a 200 with a body
// that is not valid JSON (public buckets can serve error pages with 200)
// both count as failures.
func (t *Transport) tryGet(ctx context.Context, resource string, a attempt) ([]byte, int, error) {
	url := t.signer.Endpoint + "/" + resource
	if a.signed {
		url = t.signer.SignedURL(resource, a.contentType, DefaultExpiry)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	// The header must mirror what was signed, otherwise the verifier rejects
	// the request even with a correct signature.
	if a.signed && a.contentType != "" {
		req.Header.Set("Content-Type", a.contentType)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !json.Valid(data) {
		return nil, resp.StatusCode, errors.New("response body is not valid JSON")
	}
	return data, resp.StatusCode, nil
}

// Put uploads one object with Content-Type application/json and caching
// disabled, so readers always see the latest document. The credentialed
// S3-compatible API is tried first; if the SDK path fails, a header-signed
// plain HTTP PUT is attempted before giving up, since some deployments only
// accept the OSS header signature.
func (t *Transport) Put(ctx context.Context, resource string, data []byte) error {
	sdkErr := t.putSDK(ctx, resource, data)
	if sdkErr == nil {
		t.log.Info(ctx, "uploaded object", "resource", resource, "bytes", len(data))
		return nil
	}

	t.log.Warn(ctx, "credentialed upload failed, trying signed PUT", "resource", resource, "error", sdkErr)
	if err := t.putSigned(ctx, resource, data); err != nil {
		return sdkErr
	}
	t.log.Info(ctx, "uploaded object via signed PUT", "resource", resource, "bytes", len(data))
	return nil
}

func (t *Transport) putSDK(ctx context.Context, resource string, data []byte) error {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(t.region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			t.signer.AccessKeyID,
			t.signer.AccessKeySecret,
			"",
		)))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorTransport, err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(t.signer.Endpoint)
		o.UsePathStyle = true
	})

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:       aws.String(t.bucket),
		Key:          aws.String(resource),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("no-cache"),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorTransport, err)
	}
	return nil
}

// putSigned performs a plain HTTP PUT authenticated with the OSS header
// signature. The Date and Content-Type headers must match the canonical
// string exactly.
func (t *Transport) putSigned(ctx context.Context, resource string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.signedTimeout)
	defer cancel()

	date := time.Now().UTC().Format(http.TimeFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		t.signer.Endpoint+"/"+resource, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Date", date)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", t.signer.AuthorizationHeader(http.MethodPut, "application/json", date, resource))

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", common.ErrorTransport, resp.StatusCode)
	}
	return nil
}

// Health probes the bucket with a single unauthenticated GET and reports the
// round-trip latency. Any HTTP response at all, including 403 and 404, means
// the endpoint is reachable; only a transport-level failure is unhealthy.
func (t *Transport) Health(ctx context.Context, resource string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, t.publicTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.signer.Endpoint+"/"+resource, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrorTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return time.Since(start), nil
}
