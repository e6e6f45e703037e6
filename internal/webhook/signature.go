package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	linewebhook "github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

const (
	// SignatureHeader carries the base64 HMAC-SHA256 of the request body.
	SignatureHeader = "X-Line-Signature"

	maxBodyBytes int64 = 1 << 20 // 1 MiB

	bodyContextKey = "webhook.body"
)

var (
	// ErrInvalidSignature indicates the body does not match the signature header.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Sign returns the signature the platform would send for body. It is used to
// build signed requests for local callbacks and tests.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignature reports whether signature authenticates body under secret.
func ValidateSignature(secret, signature string, body []byte) error {
	signature = strings.TrimSpace(signature)
	if signature == "" || !linewebhook.ValidateSignature(secret, signature, body) {
		return ErrInvalidSignature
	}
	return nil
}

// Middleware authenticates webhook requests before any dispatch runs. A
// missing or wrong signature yields 401 with the received signature as body;
// a body that is not JSON yields 400 with the raw payload as body. Verified
// bodies are available to the next handler through Body.
func Middleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			signature := c.Request().Header.Get(SignatureHeader)
			if strings.TrimSpace(signature) == "" {
				return c.String(http.StatusUnauthorized, signature)
			}
			payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
			}
			if int64(len(payload)) > maxBodyBytes {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", maxBodyBytes))
			}
			if err := ValidateSignature(secret, signature, payload); err != nil {
				return c.String(http.StatusUnauthorized, signature)
			}
			if !json.Valid(payload) {
				return c.Blob(http.StatusBadRequest, echo.MIMETextPlainCharsetUTF8, payload)
			}
			c.Set(bodyContextKey, payload)
			c.Request().Body = io.NopCloser(bytes.NewReader(payload))
			return next(c)
		}
	}
}

// Body returns the verified request body stored by Middleware.
func Body(c echo.Context) ([]byte, bool) {
	body, ok := c.Get(bodyContextKey).([]byte)
	return body, ok
}
