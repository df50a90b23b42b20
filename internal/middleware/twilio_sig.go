package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// TwilioForm parses the form-encoded webhook body into a params map stored on
// the context under "twilioParams" and, when enforce is set, rejects requests
// whose X-Twilio-Signature does not match. baseURL is the public base URL
// Twilio was given for callbacks; signatures are computed over it.
func TwilioForm(authToken, baseURL string, enforce bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to read request body")
			}

			formData, err := url.ParseQuery(string(body))
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to parse form data")
			}

			params := make(map[string]string)
			for key, values := range formData {
				if len(values) > 0 {
					params[key] = values[0]
				}
			}

			if enforce {
				signature := c.Request().Header.Get("X-Twilio-Signature")
				requestURL := strings.TrimSuffix(baseURL, "/") + c.Request().URL.Path
				if !ValidateSignature(authToken, signature, requestURL, params) {
					return c.String(http.StatusUnauthorized, "Invalid Twilio signature")
				}
			}

			c.Set("twilioParams", params)
			return next(c)
		}
	}
}

// ValidateSignature verifies a Twilio request signature: the auth token HMACs
// the full URL concatenated with the sorted form parameters.
func ValidateSignature(authToken, signature, fullURL string, params map[string]string) bool {
	if authToken == "" || signature == "" {
		return false
	}

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
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}
