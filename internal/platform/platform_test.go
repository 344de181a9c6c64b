package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosnap/internal/model"
)

func TestFor_AndroidStorageByVersion(t *testing.T) {
	tests := []struct {
		name    string
		osMajor int
		want    string
	}{
		{"legacy write capability", 32, PermWriteExternal},
		{"media read on 33", 33, PermReadMediaImages},
		{"media read on 34", 34, PermReadMediaImages},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := For(Android, tt.osMajor)
			require.NoError(t, err)
			id, ok := p.PermissionID(model.CapabilityMediaStorage)
			assert.True(t, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestFor_IOSNeedsNoStorageGrant(t *testing.T) {
	p, err := For(IOS, 17)
	require.NoError(t, err)

	_, ok := p.PermissionID(model.CapabilityMediaStorage)
	assert.False(t, ok)

	assert.Equal(t, []model.Capability{model.CapabilityCamera}, p.CaptureCapabilities())
}

func TestFor_Unknown(t *testing.T) {
	_, err := For("symbian", 1)
	assert.Error(t, err)
}

func TestNormalizePath(t *testing.T) {
	android, _ := For(Android, 34)
	ios, _ := For(IOS, 17)

	assert.Equal(t, "/tmp/a.jpg", android.NormalizePath("file:///tmp/a.jpg"))
	assert.Equal(t, "/tmp/a.jpg", android.NormalizePath("/tmp/a.jpg"))
	assert.Equal(t, "file:///tmp/a.jpg", ios.NormalizePath("file:///tmp/a.jpg"))
}

func TestCaptureCapabilities_Android(t *testing.T) {
	p, _ := For(Android, 34)
	assert.Equal(t, []model.Capability{model.CapabilityCamera, model.CapabilityMediaStorage}, p.CaptureCapabilities())
}
