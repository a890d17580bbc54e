package vesync

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "https://smartapi.vesync.com"

	appVersion    = "2.8.6"
	phoneBrand    = "SM N9005"
	phoneOS       = "Android"
	mobileID      = "1234567890123456"
	userType      = "1"
	defaultRegion = "US"

	devicePageSize = 100
)

// CodeDeviceOffline is the reserved response code the bypass endpoints
// return when the device cannot be reached from the cloud.
const CodeDeviceOffline = -11300027

type requestBody map[string]interface{}

// codeResponse is the envelope every JSON endpoint shares: a numeric
// status code where zero means success.
type codeResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (r codeResponse) ok() bool {
	return r.Code == 0
}

func (r codeResponse) offline() bool {
	return r.Code == CodeDeviceOffline
}

func (r codeResponse) errorf(op, name string) error {
	return fmt.Errorf("%s for %s: code %d (%s)", op, name, r.Code, r.Msg)
}

func merge(dst requestBody, srcs ...requestBody) requestBody {
	for _, src := range srcs {
		for k, v := range src {
			dst[k] = v
		}
	}
	return dst
}

// reqBodyBase returns the universal keys carried by every request body.
func (m *Manager) reqBodyBase() requestBody {
	return requestBody{
		"timeZone":       m.timeZone,
		"acceptLanguage": "en",
	}
}

// reqBodyAuth returns the keys authenticating a request.
func (m *Manager) reqBodyAuth() requestBody {
	return requestBody{
		"accountID": m.accountID,
		"token":     m.token,
	}
}

func reqBodyDetails() requestBody {
	return requestBody{
		"appVersion": appVersion,
		"phoneBrand": phoneBrand,
		"phoneOS":    phoneOS,
		"traceId":    uuid.New().String(),
	}
}

// reqBody builds the request body for a call kind from the common
// template plus call-specific fields.
func (m *Manager) reqBody(kind string) requestBody {
	switch kind {
	case "login":
		body := merge(requestBody{}, m.reqBodyBase(), reqBodyDetails())
		body["email"] = m.username
		body["password"] = hashPassword(m.password)
		body["devToken"] = ""
		body["userType"] = userType
		body["method"] = "login"
		return body
	case "devicedetail":
		body := merge(requestBody{}, m.reqBodyBase(), m.reqBodyAuth(), reqBodyDetails())
		body["method"] = "devicedetail"
		body["mobileId"] = mobileID
		return body
	case "devicelist":
		body := merge(requestBody{}, m.reqBodyBase(), m.reqBodyAuth(), reqBodyDetails())
		body["method"] = "devices"
		body["pageNo"] = "1"
		body["pageSize"] = strconv.Itoa(devicePageSize)
		return body
	case "devicestatus":
		return merge(requestBody{}, m.reqBodyBase(), m.reqBodyAuth())
	case "bypass":
		body := merge(requestBody{}, m.reqBodyBase(), m.reqBodyAuth(), reqBodyDetails())
		body["method"] = "bypass"
		return body
	case "bypassV2":
		body := merge(requestBody{}, m.reqBodyBase(), m.reqBodyAuth(), reqBodyDetails())
		body["method"] = "bypassV2"
		body["debugMode"] = false
		body["deviceRegion"] = defaultRegion
		return body
	default:
		return merge(requestBody{}, m.reqBodyBase())
	}
}

func (m *Manager) reqHeaders() map[string]string {
	return map[string]string{
		"accept-language": "en",
		"accountId":       m.accountID,
		"appVersion":      appVersion,
		"content-type":    "application/json",
		"tk":              m.token,
		"tz":              m.timeZone,
	}
}

// hashPassword encodes the account password the way the cloud expects.
func hashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// call issues a JSON request against the cloud API and decodes the
// response into out when provided. Transport failures and non-200
// statuses are errors; response-code checks are left to the caller.
func (m *Manager) call(method, path string, body requestBody, out interface{}) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, m.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	for k, v := range m.reqHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

// calculateHex converts the hex pair readings ("a:b") the legacy outlet
// endpoint uses for power and voltage.
func calculateHex(value string) (float64, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed hex reading %q", value)
	}
	a, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed hex reading %q: %w", value, err)
	}
	b, err := strconv.ParseInt(parts[1], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed hex reading %q: %w", value, err)
	}
	return float64(a+b) / 8192, nil
}
