package alpaca

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestParseRequestCaseInsensitive(t *testing.T) {
	tests := []struct {
		name        string
		form        url.Values
		field       string
		expected    string
		expectError bool
	}{
		{
			name:     "Exact case",
			form:     url.Values{"Position": {"1200"}},
			field:    "Position",
			expected: "1200",
		},
		{
			name:     "Lowercase parameter",
			form:     url.Values{"position": {"1200"}},
			field:    "Position",
			expected: "1200",
		},
		{
			name:     "Uppercase parameter",
			form:     url.Values{"POSITION": {"1200"}},
			field:    "Position",
			expected: "1200",
		},
		{
			name:        "Missing parameter",
			form:        url.Values{"Other": {"1"}},
			field:       "Position",
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := formRequest("PUT", "/move", tc.form)
			value, err := parseRequest(req, tc.field)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, value)
		})
	}
}

func TestParseTypedRequests(t *testing.T) {
	req := formRequest("PUT", "/x", url.Values{
		"Enabled": {"true"},
		"Count":   {"42"},
		"Angle":   {"12.5"},
	})

	b, err := parseBoolRequest(req, "Enabled")
	require.NoError(t, err)
	assert.True(t, b)

	n, err := parseIntRequest(req, "Count")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	f, err := parseFloatRequest(req, "Angle")
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	_, err = parseBoolRequest(req, "Count")
	assert.Error(t, err, "42 is not a bool")
}

func TestResponseEnvelope(t *testing.T) {
	req := formRequest("PUT", "/x", url.Values{"ClientTransactionID": {"77"}})
	w := httptest.NewRecorder()

	handleResponse(w, req, 1250)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp baseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 77, resp.ClientTransactionID)
	assert.Greater(t, resp.ServerTransactionID, 0)
	assert.Equal(t, 0, resp.ErrorNumber)
	assert.Equal(t, float64(1250), resp.Value)
}

func TestErrorEnvelope(t *testing.T) {
	req := formRequest("PUT", "/x", url.Values{})
	w := httptest.NewRecorder()

	handleError(w, req, http.StatusBadRequest, "bad value")

	var resp baseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.ErrorNumber)
	assert.Equal(t, "bad value", resp.ErrorMessage)
	assert.Nil(t, resp.Value)
}

func TestServerTransactionIDsIncrease(t *testing.T) {
	get := func() int {
		req := formRequest("GET", "/x", url.Values{})
		w := httptest.NewRecorder()
		handleResponse(w, req, nil)

		var resp baseResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.ServerTransactionID
	}

	first := get()
	second := get()
	assert.Greater(t, second, first)
}
