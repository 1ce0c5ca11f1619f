package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func signBody(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature_Valid(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"id":"evt_1"}`)
	header := signBody("whsec_test", now.Unix(), body)

	err := VerifySignature(body, header, "whsec_test", DefaultSignatureTolerance, now)
	require.NoError(t, err)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{}`)
	header := signBody("whsec_other", now.Unix(), body)

	err := VerifySignature(body, header, "whsec_test", DefaultSignatureTolerance, now)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	now := time.Unix(1700000000, 0)
	header := signBody("whsec_test", now.Unix(), []byte(`{"a":1}`))

	err := VerifySignature([]byte(`{"a":2}`), header, "whsec_test", DefaultSignatureTolerance, now)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifySignature_Stale(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{}`)
	header := signBody("whsec_test", now.Add(-10*time.Minute).Unix(), body)

	err := VerifySignature(body, header, "whsec_test", DefaultSignatureTolerance, now)
	require.ErrorIs(t, err, ErrStaleSignature)
}

func TestVerifySignature_MissingHeader(t *testing.T) {
	err := VerifySignature([]byte(`{}`), "", "whsec_test", DefaultSignatureTolerance, time.Now())
	require.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerifySignature_RotatedKeys(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{}`)
	// Two v1 entries; the second one matches.
	stale := signBody("whsec_old", now.Unix(), body)
	good := signBody("whsec_test", now.Unix(), body)
	header := stale + "," + good[len(fmt.Sprintf("t=%d,", now.Unix())):]

	err := VerifySignature(body, header, "whsec_test", DefaultSignatureTolerance, now)
	require.NoError(t, err)
}
