package oss

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinxingedu/kindersync/internal/common"
	"github.com/jinxingedu/kindersync/internal/config"
	"github.com/jinxingedu/kindersync/internal/logging"
)

func testTransport(endpoint string) *Transport {
	cfg := &config.Config{
		Endpoint:        endpoint,
		Region:          "oss-cn-beijing",
		Bucket:          "venus-data",
		AccessKeyID:     "test-key",
		AccessKeySecret: "test-secret",
		PublicTimeout:   2 * time.Second,
		SignedTimeout:   2 * time.Second,
		AttemptPause:    time.Millisecond,
	}
	return NewTransport(cfg, logging.NewDefault())
}

type seenRequest struct {
	signed      bool
	contentType string
}

func recordingServer(t *testing.T, handler func(n int, w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]seenRequest) {
	t.Helper()
	var seen []seenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, seenRequest{
			signed:      r.URL.Query().Get("Signature") != "",
			contentType: r.Header.Get("Content-Type"),
		})
		handler(len(seen), w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestGetFallbackChain(t *testing.T) {
	// public 500, signed+json 403, signed plain 200: only 200 stops the chain
	srv, seen := recordingServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		switch n {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.WriteHeader(http.StatusForbidden)
		default:
			_, _ = w.Write([]byte(`[{"id":"s1"}]`))
		}
	})

	res := testTransport(srv.URL).Get(context.Background(), "jinxing-edu/kt_students.json")
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.JSONEq(t, `[{"id":"s1"}]`, string(res.Data))

	require.Len(t, *seen, 3)
	assert.False(t, (*seen)[0].signed)
	assert.Empty(t, (*seen)[0].contentType)
	assert.True(t, (*seen)[1].signed)
	assert.Equal(t, "application/json", (*seen)[1].contentType)
	assert.True(t, (*seen)[2].signed)
	assert.Empty(t, (*seen)[2].contentType, "last attempt signs and sends an empty content type")
}

func TestGetFirstAttemptWins(t *testing.T) {
	srv, seen := recordingServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	res := testTransport(srv.URL).Get(context.Background(), "jinxing-edu/kt_meal_plans.json")
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Len(t, *seen, 1, "a 200 on the public URL skips the signed attempts")
}

func TestGetInvalidJSONFallsThrough(t *testing.T) {
	// public buckets can answer 200 with an HTML error page
	srv, seen := recordingServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 1 {
			_, _ = w.Write([]byte(`<html>bucket policy error</html>`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	res := testTransport(srv.URL).Get(context.Background(), "jinxing-edu/kt_staff.json")
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.JSONEq(t, `[]`, string(res.Data))
	assert.Len(t, *seen, 2)
}

func TestGetNotFoundIsSuccessEmpty(t *testing.T) {
	srv, seen := recordingServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res := testTransport(srv.URL).Get(context.Background(), "jinxing-edu/kt_attendance_records.json")
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Nil(t, res.Data, "absent object is success with no data")
	assert.Len(t, *seen, 3, "absence is only concluded after the full chain")
}

func TestGetTransportFailureOnFinalAttempt(t *testing.T) {
	// the public attempt sees a clean 404, then the connection drops for the
	// signed attempts: the failed authenticated reads must decide the outcome
	srv, seen := recordingServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Signature") == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	})

	res := testTransport(srv.URL).Get(context.Background(), "jinxing-edu/kt_students.json")
	assert.False(t, res.Success, "an early 404 must not stand in for incomplete signed reads")
	assert.ErrorIs(t, res.Err, common.ErrorTransport)
	require.NotEmpty(t, *seen)
	assert.False(t, (*seen)[0].signed)
}

func TestGetForbiddenMapsToPermissionError(t *testing.T) {
	srv, _ := recordingServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	res := testTransport(srv.URL).Get(context.Background(), "jinxing-edu/kt_students.json")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrorPermission)
}

func TestGetServerErrorMapsToTransportError(t *testing.T) {
	srv, _ := recordingServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	res := testTransport(srv.URL).Get(context.Background(), "jinxing-edu/kt_students.json")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrorTransport)
	assert.ErrorContains(t, res.Err, "502")
}

func TestGetUnreachableEndpoint(t *testing.T) {
	res := testTransport("http://127.0.0.1:1").Get(context.Background(), "jinxing-edu/kt_students.json")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrorTransport)
}

func TestPut(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	})

	var capturedEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		opts := s3.Options{}
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		capturedEndpoint = *opts.BaseEndpoint
		return s3.NewFromConfig(cfg, optFns...)
	}

	var captured *s3.PutObjectInput
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		captured = in
		return &s3.PutObjectOutput{}, nil
	}

	tr := testTransport("https://venus-data.oss-cn-beijing.aliyuncs.com")
	err := tr.Put(context.Background(), "jinxing-edu/kt_staff.json", []byte(`[{"id":"t1"}]`))
	require.NoError(t, err)

	assert.Equal(t, "https://venus-data.oss-cn-beijing.aliyuncs.com", capturedEndpoint)
	require.NotNil(t, captured)
	assert.Equal(t, "venus-data", *captured.Bucket)
	assert.Equal(t, "jinxing-edu/kt_staff.json", *captured.Key)
	assert.Equal(t, "application/json", *captured.ContentType)
	assert.Equal(t, "no-cache", *captured.CacheControl)
	body, err := io.ReadAll(captured.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(body))
}

func TestPutSignedFallback(t *testing.T) {
	origPut := putObject
	t.Cleanup(func() { putObject = origPut })
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("access denied")
	}

	var gotAuth, gotDate, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotDate = r.Header.Get("Date")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	t.Cleanup(srv.Close)

	tr := testTransport(srv.URL)
	err := tr.Put(context.Background(), "jinxing-edu/kt_staff.json", []byte(`[{"id":"t1"}]`))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotAuth, "OSS test-key:"), "header signature form: %q", gotAuth)
	assert.NotEmpty(t, gotDate)
	assert.JSONEq(t, `[{"id":"t1"}]`, gotBody)
}

func TestPutError(t *testing.T) {
	origPut := putObject
	t.Cleanup(func() { putObject = origPut })
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("access denied")
	}

	// the signed fallback cannot reach the endpoint either
	tr := testTransport("http://127.0.0.1:1")
	err := tr.Put(context.Background(), "jinxing-edu/kt_staff.json", []byte(`[]`))
	assert.ErrorIs(t, err, common.ErrorTransport)
	assert.ErrorContains(t, err, "access denied")
}

func TestHealth(t *testing.T) {
	srv, _ := recordingServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	latency, err := testTransport(srv.URL).Health(context.Background(), "jinxing-edu/kt_students.json")
	require.NoError(t, err, "any HTTP response means the endpoint is reachable")
	assert.Greater(t, latency, time.Duration(0))

	_, err = testTransport("http://127.0.0.1:1").Health(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrorTransport)
}
