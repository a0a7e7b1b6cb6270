package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexFloat64Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"number", `{"v": 123.5}`, 123.5, false},
		{"integer number", `{"v": 50}`, 50, false},
		{"string", `{"v": "310.25"}`, 310.25, false},
		{"negative string", `{"v": "-12"}`, -12, false},
		{"bad string", `{"v": "abc"}`, 0, true},
		{"array", `{"v": [1]}`, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var target struct {
				V FlexFloat64 `json:"v"`
			}
			err := json.Unmarshal([]byte(tc.input), &target)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, target.V.Float64())
		})
	}
}

func TestFlexFloat64MarshalAsNumber(t *testing.T) {
	out, err := json.Marshal(FlexFloat64(42.5))
	require.NoError(t, err)
	assert.Equal(t, "42.5", string(out))
}

func TestErrorKinds(t *testing.T) {
	err := NotFound("Room not found")
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindValidation))
	assert.Equal(t, 404, err.Code)

	storageErr := Storage("put failed", assert.AnError)
	assert.True(t, IsKind(storageErr, KindStorage))
	assert.ErrorIs(t, storageErr, assert.AnError)
}
