package asset_test

import (
	"path/filepath"
	"testing"

	"github.com/odontosoft/clinicvault/asset"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalRelPath(t *testing.T) {
	got := asset.CanonicalRelPath(42, 16, "xray", "scan.png")
	assert.Equal(t, filepath.Join("42", "16", "xray", "scan.png"), got)
}

func TestLegacyRelPath(t *testing.T) {
	got := asset.LegacyRelPath("Jane Doe", "xray", "scan.png")
	assert.Equal(t, filepath.Join("Jane Doe", "xray", "scan.png"), got)
}

func TestParseRelPath(t *testing.T) {
	tests := []struct {
		name string
		rel  string
		want asset.PathParts
		ok   bool
	}{
		{
			name: "canonical",
			rel:  "42/16/xray/scan.png",
			want: asset.PathParts{PatientID: 42, Tooth: 16, Category: "xray", Filename: "scan.png"},
			ok:   true,
		},
		{
			name: "primary tooth",
			rel:  "7/55/photo/a.jpg",
			want: asset.PathParts{PatientID: 7, Tooth: 55, Category: "photo", Filename: "a.jpg"},
			ok:   true,
		},
		{name: "legacy layout", rel: "Jane Doe/xray/scan.png"},
		{name: "non numeric owner", rel: "jane/16/xray/scan.png"},
		{name: "implausible tooth", rel: "42/99/xray/scan.png"},
		{name: "zero owner", rel: "0/16/xray/scan.png"},
		{name: "too deep", rel: "42/16/xray/sub/scan.png"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := asset.ParseRelPath(tc.rel)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestValidTooth(t *testing.T) {
	assert.True(t, asset.ValidTooth(1))
	assert.True(t, asset.ValidTooth(32))
	assert.True(t, asset.ValidTooth(51))
	assert.True(t, asset.ValidTooth(85))
	assert.False(t, asset.ValidTooth(0))
	assert.False(t, asset.ValidTooth(33))
	assert.False(t, asset.ValidTooth(86))
	assert.False(t, asset.ValidTooth(-4))
}
