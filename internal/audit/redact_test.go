package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactBodyMasksSensitiveFields(t *testing.T) {
	body := []byte(`{
		"username": "alice",
		"password": "hunter2",
		"newPassword": "hunter3",
		"csrfToken": "abc",
		"apiSecret": "xyz",
		"note": "keep"
	}`)

	out := RedactBody(body)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	assert.Equal(t, "alice", decoded["username"])
	assert.Equal(t, RedactionMarker, decoded["password"])
	assert.Equal(t, RedactionMarker, decoded["newPassword"])
	assert.Equal(t, RedactionMarker, decoded["csrfToken"])
	assert.Equal(t, RedactionMarker, decoded["apiSecret"])
	assert.Equal(t, "keep", decoded["note"])
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "hunter3")
}

func TestRedactBodyNested(t *testing.T) {
	body := []byte(`{"accounts":[{"name":"a","password":"p1"},{"name":"b","credentials":{"token":"t1"}}]}`)

	out := RedactBody(body)

	assert.NotContains(t, out, "p1")
	assert.NotContains(t, out, "t1")
	assert.Contains(t, out, RedactionMarker)
}

func TestRedactBodyEmpty(t *testing.T) {
	assert.Equal(t, "", RedactBody(nil))
	assert.Equal(t, "", RedactBody([]byte{}))
}

func TestRedactBodyNonJSON(t *testing.T) {
	out := RedactBody([]byte("password=hunter2&user=alice"))
	assert.False(t, strings.Contains(out, "hunter2"))
	assert.Contains(t, out, "_omitted")
}

func TestRedactBodyOversized(t *testing.T) {
	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	out := RedactBody(big)
	assert.Contains(t, out, "_omitted")
}
