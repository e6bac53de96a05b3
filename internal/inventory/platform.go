package inventory

import "strings"

// Platform is the CLI flavour a device speaks.
type Platform string

const (
	PlatformIOS      Platform = "IOS"
	PlatformIOSXE    Platform = "IOS-XE"
	PlatformIOSXR    Platform = "IOS-XR"
	PlatformL2Switch Platform = "L2-SWITCH"
)

// IsXR reports whether the device needs the IOS-XR session flow: no enable,
// and configuration must be committed.
func (p Platform) IsXR() bool {
	return p == PlatformIOSXR
}

// DetectPlatform maps a netmiko device_type or a model string to a
// Platform. Specific patterns are checked before generic ones: ASR903 and
// ASR920 are IOS-XE even though they start with "ASR9".
func DetectPlatform(deviceType string) Platform {
	dt := strings.ToUpper(strings.TrimSpace(deviceType))

	switch dt {
	case "CISCO_IOS", "CISCO_IOS_SSH", "CISCO_IOS_TELNET":
		return PlatformIOS
	case "CISCO_XE", "CISCO_IOS_XE":
		return PlatformIOSXE
	case "CISCO_XR", "CISCO_IOS_XR":
		return PlatformIOSXR
	}

	if containsAny(dt, "ASR903", "ASR-903", "ASR920", "ASR-920") {
		return PlatformIOSXE
	}

	if containsAny(dt, "ASR9K", "ASR-9K", "ASR90", "ASR91", "ASR99",
		"XRV", "IOS-XR", "IOSXR", "NCS", "CRS") {
		return PlatformIOSXR
	}

	if containsAny(dt, "ASR1", "ASR-1", "ISR", "CSR", "IOS-XE", "IOSXE",
		"C8", "C11", "C12") {
		return PlatformIOSXE
	}

	if containsAny(dt, "SWITCH", "CAT", "C9300", "C9200", "C9400", "C9500",
		"C3850", "C3750", "C2960", "IOSVL2", "L2") {
		return PlatformL2Switch
	}

	return PlatformIOS
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
