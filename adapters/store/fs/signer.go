package storefs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goliatone/go-invoice/invoice"
)

// SignedURLInput describes a signed URL request.
type SignedURLInput struct {
	BaseURL   string
	Key       string
	ExpiresAt time.Time
}

// Signer signs artifact URLs.
type Signer interface {
	SignURL(input SignedURLInput) (string, error)
}

// HMACSigner signs links as <base>/<key>?expires=<unix>&sig=<hex>.
type HMACSigner struct {
	Secret []byte
	Now    func() time.Time
}

// SignURL implements Signer.
func (s HMACSigner) SignURL(input SignedURLInput) (string, error) {
	if len(s.Secret) == 0 {
		return "", invoice.NewError(invoice.KindValidation, "signing secret is required", nil)
	}
	expires := strconv.FormatInt(input.ExpiresAt.Unix(), 10)
	query := url.Values{}
	query.Set("expires", expires)
	query.Set("sig", s.signature(input.Key, expires))
	return fmt.Sprintf("%s/%s?%s", input.BaseURL, invoice.EscapeArtifactKey(input.Key), query.Encode()), nil
}

// Verify checks a signature produced by SignURL.
func (s HMACSigner) Verify(key, expires, signature string) error {
	if len(s.Secret) == 0 {
		return invoice.NewError(invoice.KindValidation, "signing secret is required", nil)
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return invoice.NewError(invoice.KindValidation, "invalid link expiry", err)
	}
	expected := s.signature(key, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return invoice.NewError(invoice.KindValidation, "invalid link signature", nil)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if now().After(time.Unix(unix, 0)) {
		return invoice.NewError(invoice.KindNotFound, "link expired", nil)
	}
	return nil
}

func (s HMACSigner) signature(key, expires string) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(expires))
	return hex.EncodeToString(mac.Sum(nil))
}

