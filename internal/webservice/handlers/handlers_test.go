package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/webservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validateErr is a payload rejection of a service.
var validateErr = validate.Errorf("name is required")

// request describes a call to a module mounted under prefix.
type request struct {
	method string
	path   string
	body   string
}

// serve mounts m under prefix and runs req against it.
func serve(t *testing.T, prefix string, m webservice.Module, req request) *httptest.ResponseRecorder {
	t.Helper()

	rt := webservice.NewRouter(false, "/media/", "", nil)
	require.NoError(t, rt.Include(prefix, m), "Setup: Include should not fail")

	method := req.method
	if method == "" {
		method = http.MethodGet
	}
	var r *http.Request
	if req.body != "" {
		r = httptest.NewRequest(method, req.path, strings.NewReader(req.body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, req.path, nil)
	}

	rr := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rr, r)
	return rr
}

// decode unmarshals the JSON body of rr into a generic value.
func decode(t *testing.T, rr *httptest.ResponseRecorder) any {
	t.Helper()

	if rr.Body.Len() == 0 {
		return nil
	}
	var v any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body should be JSON: %s", rr.Body.String())
	return v
}

// field returns the key of a decoded JSON object.
func field(t *testing.T, v any, key string) any {
	t.Helper()

	obj, ok := v.(map[string]any)
	require.True(t, ok, "expected a JSON object, got %T", v)
	return obj[key]
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int) {
	t.Helper()

	require.Equal(t, wantStatus, rr.Code, "unexpected status, body: %s", rr.Body.String())
	assert.NotEmpty(t, field(t, decode(t, rr), "error"), "error responses should carry a message")
}
