package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func signRequest(authToken, fullURL string, params map[string]string) string {
	data := fullURL
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	params := map[string]string{"CallSid": "CA1", "SpeechResult": "hello"}
	fullURL := "https://example.ngrok.app/process-response"
	sig := signRequest("token", fullURL, params)

	if !ValidateSignature("token", sig, fullURL, params) {
		t.Fatalf("expected valid signature")
	}
	if ValidateSignature("token", sig, fullURL+"x", params) {
		t.Fatalf("expected invalid signature for different URL")
	}
	if ValidateSignature("other", sig, fullURL, params) {
		t.Fatalf("expected invalid signature for different token")
	}
	if ValidateSignature("token", "", fullURL, params) {
		t.Fatalf("expected invalid for empty signature")
	}
}

func TestTwilioForm_ParsesParams(t *testing.T) {
	e := echo.New()
	var got map[string]string
	h := TwilioForm("token", "https://example.ngrok.app", false)(func(c echo.Context) error {
		got = c.Get("twilioParams").(map[string]string)
		return c.NoContent(http.StatusOK)
	})

	form := url.Values{"CallSid": {"CA1"}, "SpeechResult": {"hi there"}}
	req := httptest.NewRequest(http.MethodPost, "/process-response", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got["CallSid"] != "CA1" || got["SpeechResult"] != "hi there" {
		t.Fatalf("params = %v", got)
	}
}

func TestTwilioForm_EnforcesSignature(t *testing.T) {
	e := echo.New()
	h := TwilioForm("token", "https://example.ngrok.app", true)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	form := url.Values{"CallSid": {"CA1"}}
	req := httptest.NewRequest(http.MethodPost, "/process-response", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned request should be rejected, got %d", rec.Code)
	}

	sig := signRequest("token", "https://example.ngrok.app/process-response", map[string]string{"CallSid": "CA1"})
	req = httptest.NewRequest(http.MethodPost, "/process-response", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("X-Twilio-Signature", sig)
	rec = httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("signed request should pass, got %d", rec.Code)
	}
}
