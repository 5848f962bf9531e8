// Package uiauto is a minimal WebDriver client for a UiAutomator2
// automation server (Appium-compatible) listening on a local endpoint.
package uiauto

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nordapps/storecheck/internal/target"
)

// DefaultServerURL is where the automation server listens unless
// overridden on the command line.
const DefaultServerURL = "http://127.0.0.1:4723"

// w3cElementKey is the W3C WebDriver element identifier key. Older
// servers return the legacy "ELEMENT" key instead; both are accepted.
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// Capabilities configure a new driver session.
type Capabilities struct {
	PlatformName   string
	DeviceName     string
	AppPackage     string
	AppActivity    string
	AutomationName string
	NoReset        bool
}

// PlayStoreCapabilities returns the session config for driving the
// Google Play Store app.
func PlayStoreCapabilities(deviceName string) Capabilities {
	return Capabilities{
		PlatformName:   "Android",
		DeviceName:     deviceName,
		AppPackage:     "com.android.vending",
		AppActivity:    "com.google.android.finsky.activities.MainActivity",
		AutomationName: "UiAutomator2",
		NoReset:        true,
	}
}

// GenericCapabilities returns a session config not scoped to any app,
// used for post-install UI verification.
func GenericCapabilities(deviceName string) Capabilities {
	return Capabilities{
		PlatformName:   "Android",
		DeviceName:     deviceName,
		AutomationName: "UiAutomator2",
		NoReset:        true,
	}
}

// asW3C renders the capabilities as a W3C new-session payload. Vendor
// capabilities get the appium: prefix.
func (c Capabilities) asW3C() map[string]any {
	alwaysMatch := map[string]any{
		"platformName":          c.PlatformName,
		"appium:deviceName":     c.DeviceName,
		"appium:automationName": c.AutomationName,
		"appium:noReset":        c.NoReset,
	}
	if c.AppPackage != "" {
		alwaysMatch["appium:appPackage"] = c.AppPackage
	}
	if c.AppActivity != "" {
		alwaysMatch["appium:appActivity"] = c.AppActivity
	}
	return map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": alwaysMatch,
			"firstMatch":  []any{map[string]any{}},
		},
	}
}

// Client talks to one automation server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. An empty baseURL
// uses DefaultServerURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// serverError is the error payload shape of a WebDriver error response.
type serverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do issues one WebDriver request and decodes the "value" envelope into
// out (which may be nil when the response body is irrelevant).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("driver request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read driver response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Value serverError `json:"value"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Value.Error != "" {
			return &DriverError{
				Code:    envelope.Value.Error,
				Message: envelope.Value.Message,
				Status:  resp.StatusCode,
			}
		}
		return fmt.Errorf("driver returned HTTP %d for %s %s", resp.StatusCode, method, path)
	}

	if out != nil {
		envelope := struct {
			Value any `json:"value"`
		}{Value: out}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return fmt.Errorf("failed to decode driver response: %w", err)
		}
	}
	return nil
}

// DriverError is a structured WebDriver error response.
type DriverError struct {
	Code    string
	Message string
	Status  int
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver error %s: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is the driver's "no such element"
// response. Callers branch on it instead of propagating the timeout.
func IsNotFound(err error) bool {
	de, ok := err.(*DriverError)
	return ok && de.Code == "no such element"
}

// Status probes server liveness.
func (c *Client) Status(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/status", nil, nil)
}

// Session is one scoped driver session. Always release it with Quit.
type Session struct {
	client *Client
	id     string
}

// NewSession opens a driver session with the given capabilities.
func (c *Client) NewSession(ctx context.Context, caps Capabilities) (*Session, error) {
	var value struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.do(ctx, http.MethodPost, "/session", caps.asW3C(), &value); err != nil {
		return nil, fmt.Errorf("failed to create driver session: %w", err)
	}
	if value.SessionID == "" {
		return nil, fmt.Errorf("driver returned an empty session id")
	}
	return &Session{client: c, id: value.SessionID}, nil
}

// ID returns the driver-assigned session id.
func (s *Session) ID() string {
	return s.id
}

// Quit releases the session.
func (s *Session) Quit(ctx context.Context) error {
	return s.client.do(ctx, http.MethodDelete, "/session/"+s.id, nil, nil)
}

// strategy maps a locator kind to its WebDriver location strategy.
func strategy(kind target.LocatorKind) string {
	switch kind {
	case target.ClassName:
		return "class name"
	case target.XPath:
		return "xpath"
	default:
		return "accessibility id"
	}
}

// Find locates an element, returning its driver id. A missing element
// surfaces as a DriverError matched by IsNotFound.
func (s *Session) Find(ctx context.Context, loc target.Locator) (string, error) {
	body := map[string]string{
		"using": strategy(loc.Kind),
		"value": loc.Value,
	}
	value := map[string]string{}
	if err := s.client.do(ctx, http.MethodPost, "/session/"+s.id+"/element", body, &value); err != nil {
		return "", err
	}

	if id := value[w3cElementKey]; id != "" {
		return id, nil
	}
	if id := value["ELEMENT"]; id != "" {
		return id, nil
	}
	return "", fmt.Errorf("driver element response carried no element id")
}

// Click clicks the element with the given id.
func (s *Session) Click(ctx context.Context, elementID string) error {
	path := "/session/" + s.id + "/element/" + elementID + "/click"
	return s.client.do(ctx, http.MethodPost, path, map[string]any{}, nil)
}

// Screenshot captures the current screen as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var encoded string
	if err := s.client.do(ctx, http.MethodGet, "/session/"+s.id+"/screenshot", nil, &encoded); err != nil {
		return nil, err
	}
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return png, nil
}

// Shell runs a device shell command through the driver's mobile: shell
// extension. timeout is the device-side budget in milliseconds.
func (s *Session) Shell(ctx context.Context, command string, args []string, timeout time.Duration) error {
	body := map[string]any{
		"script": "mobile: shell",
		"args": []any{map[string]any{
			"command":       command,
			"args":          args,
			"includeStderr": true,
			"timeout":       timeout.Milliseconds(),
		}},
	}
	return s.client.do(ctx, http.MethodPost, "/session/"+s.id+"/execute/sync", body, nil)
}
