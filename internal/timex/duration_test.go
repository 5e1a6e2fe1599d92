package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: `"3s"`, want: 3 * time.Second},
		{in: `"1m30s"`, want: 90 * time.Second},
		{in: `1500000000`, want: 1500 * time.Millisecond},
		{in: `0`, want: 0},
		{in: `"soon"`, wantErr: true},
		{in: `true`, wantErr: true},
		{in: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Duration `json:"d"`
	}{Duration{3 * time.Second}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"3s"}`, string(b))
}
