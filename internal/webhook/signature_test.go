package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "channel-secret"

func TestValidateSignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"events":[]}`)
	sig := Sign(testSecret, body)

	require.NoError(t, ValidateSignature(testSecret, sig, body))
	assert.ErrorIs(t, ValidateSignature("other", sig, body), ErrInvalidSignature)
	assert.ErrorIs(t, ValidateSignature(testSecret, sig, []byte(`{"events":[1]}`)), ErrInvalidSignature)
	assert.ErrorIs(t, ValidateSignature(testSecret, "!!not-base64!!", body), ErrInvalidSignature)
}

func serveWithMiddleware(t *testing.T, body, signature string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()

	var seen []byte
	e := echo.New()
	e.POST("/callback", func(c echo.Context) error {
		got, ok := Body(c)
		if !ok {
			t.Fatalf("verified body missing from context")
		}
		seen = got
		return c.NoContent(http.StatusOK)
	}, Middleware(testSecret))

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	body := `{"destination":"U1","events":[]}`

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		rec, seen := serveWithMiddleware(t, body, Sign(testSecret, []byte(body)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, string(seen))
	})

	t.Run("missing signature", func(t *testing.T) {
		t.Parallel()
		rec, seen := serveWithMiddleware(t, body, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("wrong signature echoes it", func(t *testing.T) {
		t.Parallel()
		rec, seen := serveWithMiddleware(t, body, "d3Jvbmc=")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "d3Jvbmc=", rec.Body.String())
		assert.Nil(t, seen)
	})

	t.Run("invalid json echoes payload", func(t *testing.T) {
		t.Parallel()
		raw := `{"events":[`
		rec, seen := serveWithMiddleware(t, raw, Sign(testSecret, []byte(raw)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, raw, rec.Body.String())
		assert.Nil(t, seen)
	})
}
