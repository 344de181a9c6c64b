// Package platform holds the per-OS capability table. A Profile is selected
// once at startup and every component that would otherwise branch on the
// OS asks the profile instead.
package platform

import (
	"fmt"
	"strings"

	"geosnap/internal/model"
)

type Name string

const (
	Android Name = "android"
	IOS     Name = "ios"
)

// OS level permission identifiers.
const (
	PermCamera              = "android.permission.CAMERA"
	PermFineLocation        = "android.permission.ACCESS_FINE_LOCATION"
	PermReadMediaImages     = "android.permission.READ_MEDIA_IMAGES"
	PermWriteExternal       = "android.permission.WRITE_EXTERNAL_STORAGE"
	PermIOSCamera           = "ios.permission.CAMERA"
	PermIOSLocationInUse    = "ios.permission.LOCATION_WHEN_IN_USE"
	PermIOSLocationAlways   = "ios.permission.LOCATION_ALWAYS"
	androidMediaReadVersion = 33
)

type Profile struct {
	Name    Name
	OSMajor int

	// Permissions maps a capability to its OS identifier. A capability
	// missing from the map needs no grant on this platform.
	Permissions map[model.Capability]string

	// LocationStatusVariants are checked by the read-only location status
	// query.
	LocationStatusVariants []string

	// URIPrefix is stripped from captured image URIs before file access.
	URIPrefix string

	// ReportsPermanentDenialOnCheck is true when a plain status check can
	// observe a permanent denial. Android only reports it from a request.
	ReportsPermanentDenialOnCheck bool
}

// For returns the profile for the named platform and OS major version.
func For(name Name, osMajor int) (Profile, error) {
	switch name {
	case Android:
		storage := PermWriteExternal
		if osMajor >= androidMediaReadVersion {
			storage = PermReadMediaImages
		}
		return Profile{
			Name:    Android,
			OSMajor: osMajor,
			Permissions: map[model.Capability]string{
				model.CapabilityCamera:       PermCamera,
				model.CapabilityFineLocation: PermFineLocation,
				model.CapabilityMediaStorage: storage,
			},
			LocationStatusVariants: []string{PermFineLocation},
			URIPrefix:              "file://",
		}, nil
	case IOS:
		return Profile{
			Name:    IOS,
			OSMajor: osMajor,
			Permissions: map[model.Capability]string{
				model.CapabilityCamera:       PermIOSCamera,
				model.CapabilityFineLocation: PermIOSLocationInUse,
			},
			LocationStatusVariants:        []string{PermIOSLocationInUse, PermIOSLocationAlways},
			ReportsPermanentDenialOnCheck: true,
		}, nil
	}
	return Profile{}, fmt.Errorf("unknown platform %q", name)
}

// PermissionID returns the OS identifier for c and whether the platform
// requires a grant for it at all.
func (p Profile) PermissionID(c model.Capability) (string, bool) {
	id, ok := p.Permissions[c]
	return id, ok
}

// NormalizePath turns a captured URI into a local file path.
func (p Profile) NormalizePath(uri string) string {
	if p.URIPrefix == "" {
		return uri
	}
	return strings.TrimPrefix(uri, p.URIPrefix)
}

// CaptureCapabilities lists the grants a capture cannot proceed without.
// Location never blocks a capture and is not among them.
func (p Profile) CaptureCapabilities() []model.Capability {
	var required []model.Capability
	for _, c := range []model.Capability{model.CapabilityCamera, model.CapabilityMediaStorage} {
		if _, ok := p.Permissions[c]; ok {
			required = append(required, c)
		}
	}
	return required
}
