package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageFromData(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	m := MessageFromData("m1", map[string]interface{}{
		"customerId":  int64(42),
		"customerNic": "991234567V",
		"heading":     "Bill",
		"message":     "Due now",
		"attachments": []interface{}{"invoice.pdf"},
		"createdAt":   created,
		"isRead":      false,
	})

	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "42", m.CustomerID)
	assert.Equal(t, "991234567V", m.CustomerNIC)
	assert.Equal(t, "Bill", m.Heading)
	assert.Equal(t, "Due now", m.Body)
	assert.True(t, m.HasAttachments())
	assert.Equal(t, created, m.CreatedAt)
	assert.Nil(t, m.ReadAt)
}

func TestMessageFromData_MissingFields(t *testing.T) {
	m := MessageFromData("m2", map[string]interface{}{"attachments": []interface{}{}})

	assert.Empty(t, m.CustomerID)
	assert.False(t, m.HasAttachments())
}

func TestMessageFromData_FloatCustomerID(t *testing.T) {
	m := MessageFromData("m3", map[string]interface{}{"customerId": float64(1001)})
	assert.Equal(t, "1001", m.CustomerID)
}

func TestFlexString(t *testing.T) {
	var req struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"42","b":42,"c":null}`), &req))
	assert.Equal(t, FlexString("42"), req.A)
	assert.Equal(t, FlexString("42"), req.B)
	assert.Equal(t, FlexString(""), req.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":{"x":1}}`), &req))
}
