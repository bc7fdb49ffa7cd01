package vault

import (
	"regexp"
	"strings"

	"github.com/Hussein-Mazeh/PassForge/internal/generator"
)

// NameSeparator joins metadata fields in an entry name.
const NameSeparator = " / "

var suffixRE = regexp.MustCompile(` \(\d+\)$`)

// BaseName builds the human-readable candidate name for params: the service,
// followed by account, device and version when they differ from their
// defaults.
//
//	example.com                      all defaults
//	example.com / alice / v02        account and version set
func BaseName(p generator.DerivationParams) string {
	parts := []string{strings.TrimSpace(p.Service)}
	for _, f := range []struct{ val, def string }{
		{p.Account, generator.DefaultAccount},
		{p.Device, generator.DefaultDevice},
		{p.Version, generator.DefaultVersion},
	} {
		v := strings.TrimSpace(f.val)
		if v == "" || v == f.def {
			continue
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, NameSeparator)
}

// ServiceOf returns the service part of an entry name, ignoring any other
// fields and a trailing " (n)" collision suffix.
func ServiceOf(name string) string {
	name = suffixRE.ReplaceAllString(name, "")
	if i := strings.Index(name, NameSeparator); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}
