package persist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/storekit/types"
)

func TestEncodeSnapshotFormat(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	data, err := EncodeSnapshot([]types.Entry[string, string]{
		{Key: "b", Value: `"two"`, ExpiresAt: at},
		{Key: "a", Value: `1`, ExpiresAt: at},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"key":"a","value":"1","expirationDate":"2024-03-01T10:30:00Z"},
		{"key":"b","value":"\"two\"","expirationDate":"2024-03-01T10:30:00Z"}
	]`, string(data))
}

func TestDecodeSnapshotRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.UTC)
	in := []types.Entry[string, string]{{Key: "k", Value: "v", ExpiresAt: at}}

	data, err := EncodeSnapshot(in)
	require.NoError(t, err)

	out, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "k", out[0].Key)
	assert.Equal(t, "v", out[0].Value)
	assert.True(t, at.Equal(out[0].ExpiresAt))
}

func TestDecodeSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `[{`},
		{"not an array", `{"key":"a"}`},
		{"element not an object", `[1]`},
		{"missing key", `[{"value":"v","expirationDate":0}]`},
		{"numeric value", `[{"key":"k","value":1,"expirationDate":0}]`},
		{"missing date", `[{"key":"k","value":"v"}]`},
		{"bad date", `[{"key":"k","value":"v","expirationDate":"tomorrow"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}

func TestDecodeSnapshotEpochSeconds(t *testing.T) {
	out, err := DecodeSnapshot([]byte(`[{"key":"k","value":"v","expirationDate":1700000000.5}]`))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, time.Unix(1700000000, 500000000).UTC(), out[0].ExpiresAt)
}

func TestDecodeEmptyArray(t *testing.T) {
	out, err := DecodeSnapshot([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, out)
}
