package model

type Capability string

const (
	CapabilityCamera       Capability = "camera"
	CapabilityFineLocation Capability = "fine-location"
	CapabilityMediaStorage Capability = "media-storage"
)

type PermissionState string

const (
	PermissionUnknown           PermissionState = "unknown"
	PermissionGranted           PermissionState = "granted"
	PermissionDenied            PermissionState = "denied"
	PermissionPermanentlyDenied PermissionState = "permanently-denied"
)

func (s PermissionState) Granted() bool {
	return s == PermissionGranted
}
