package oss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testSigner() *Signer {
	s := NewSigner("https://venus-data.oss-cn-beijing.aliyuncs.com", "venus-data", "test-key", "test-secret")
	// freeze the clock so Expires lands on 1700000000
	s.now = func() time.Time { return time.Unix(1700000000-3600, 0) }
	return s
}

func TestStringToSign(t *testing.T) {
	s := testSigner()
	got := s.StringToSign("GET", "application/json", "1700000000", "jinxing-edu/kt_students.json")
	assert.Equal(t, "GET\n\napplication/json\n1700000000\n/venus-data/jinxing-edu/kt_students.json", got)
}

// Golden vectors pinned against an independent HMAC-SHA1 implementation.
func TestSignGolden(t *testing.T) {
	s := testSigner()

	withType := s.Sign("GET\n\napplication/json\n1700000000\n/venus-data/jinxing-edu/kt_students.json")
	assert.Equal(t, "YLyNvo/+gdTPLUCZ1y/zHp15bOA=", withType)

	noType := s.Sign("GET\n\n\n1700000000\n/venus-data/jinxing-edu/kt_students.json")
	assert.Equal(t, "DNZc3XXciyyvOHDqQAPGW6LcSl4=", noType)

	put := s.Sign("PUT\n\napplication/json\nMon, 20 Nov 2023 11:00:00 GMT\n/venus-data/jinxing-edu/kt_staff.json")
	assert.Equal(t, "mvjyciRvYYGJNdPglDULraoM/Ns=", put)
}

func TestSignedURL(t *testing.T) {
	s := testSigner()

	got := s.SignedURL("jinxing-edu/kt_students.json", "application/json", DefaultExpiry)
	want := "https://venus-data.oss-cn-beijing.aliyuncs.com/jinxing-edu/kt_students.json" +
		"?OSSAccessKeyId=test-key&Expires=1700000000&Signature=YLyNvo%2F%2BgdTPLUCZ1y%2FzHp15bOA%3D"
	assert.Equal(t, want, got)

	// deterministic: same inputs, same second, same URL
	assert.Equal(t, got, s.SignedURL("jinxing-edu/kt_students.json", "application/json", DefaultExpiry))
}

func TestAuthorizationHeader(t *testing.T) {
	s := testSigner()
	got := s.AuthorizationHeader("PUT", "application/json", "Mon, 20 Nov 2023 11:00:00 GMT", "jinxing-edu/kt_staff.json")
	assert.Equal(t, "OSS test-key:mvjyciRvYYGJNdPglDULraoM/Ns=", got)
}
