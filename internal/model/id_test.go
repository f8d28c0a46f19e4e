package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPack_DecodesStringOrNumber(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want Pack
	}{
		{"Strings", `{"id": "abc", "name": "Rocket"}`, Pack{ID: "abc", Name: "Rocket"}},
		{"Numbers", `{"id": 7, "name": 100}`, Pack{ID: "7", Name: "100"}},
		{"Decimal number name", `{"id": 7, "name": 1.5}`, Pack{ID: "7", Name: "1.5"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got Pack
			require.NoError(t, json.Unmarshal([]byte(tc.body), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestText_RejectsOtherTypes(t *testing.T) {
	var c Collection
	assert.Error(t, json.Unmarshal([]byte(`{"id": 1, "name": [1]}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"id": true, "name": "Space"}`), &c))
}
