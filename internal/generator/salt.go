package generator

import "strings"

// SaltSeparator joins salt fields.
const SaltSeparator = ":"

// Salt builds the derivation salt "service:account:device:version".
// Values are used verbatim; changing any single field rotates the password.
func Salt(service, account, device, version string) string {
	return strings.Join([]string{service, account, device, version}, SaltSeparator)
}
