package id_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"RunID", id.NewRunID, "run_"},
		{"AuditID", id.NewAuditID, "aud_"},
		{"PartitionID", id.NewPartitionID, "part_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			assert.True(t, strings.HasPrefix(got, tt.prefix), "expected prefix %q, got %q", tt.prefix, got)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix id.Prefix
	}{
		{"RunID", id.NewRunID, id.PrefixRun},
		{"AuditID", id.NewAuditID, id.PrefixAudit},
		{"PartitionID", id.NewPartitionID, id.PrefixPartition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := id.Parse(original.String())
			require.NoError(t, err)
			assert.Equal(t, original.String(), parsed.String())
			assert.Equal(t, tt.prefix, parsed.Prefix())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := id.Parse("run_not-a-typeid")
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	assert.Error(t, err)
}

func TestNilID(t *testing.T) {
	var i id.ID
	assert.True(t, i.IsNil())
	assert.Empty(t, i.String())
	assert.Empty(t, i.Prefix())

	v, err := i.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestScan(t *testing.T) {
	original := id.NewRunID()

	var fromString id.ID
	require.NoError(t, fromString.Scan(original.String()))
	assert.Equal(t, original.String(), fromString.String())

	var fromBytes id.ID
	require.NoError(t, fromBytes.Scan([]byte(original.String())))
	assert.Equal(t, original.String(), fromBytes.String())

	var fromNil id.ID
	require.NoError(t, fromNil.Scan(nil))
	assert.True(t, fromNil.IsNil())

	var bad id.ID
	assert.Error(t, bad.Scan(42))
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewRunID()
	data, err := original.MarshalText()
	require.NoError(t, err)

	var restored id.ID
	require.NoError(t, restored.UnmarshalText(data))
	assert.Equal(t, original.String(), restored.String())

	var nilID id.ID
	data, err = nilID.MarshalText()
	require.NoError(t, err)

	var restored2 id.ID
	require.NoError(t, restored2.UnmarshalText(data))
	assert.True(t, restored2.IsNil())
}
