// Package platform defines the messaging platforms convocore understands
// and validates their identifier wire formats. Resolution walks platforms
// in a fixed priority order, so adding a platform is a one-entry change
// to the registry table below.
package platform

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/convocore/convocore/internal/errors"
)

// Platform names a supported messaging platform.
type Platform string

const (
	WhatsApp Platform = "WHATSAPP"
	Telegram Platform = "TELEGRAM"
	API      Platform = "API"
)

// WhatsApp identifier suffixes as they appear on the wire.
const (
	whatsAppUserSuffix  = "@s.whatsapp.net"
	whatsAppGroupSuffix = "@g.us"
)

var (
	digitsRe        = regexp.MustCompile(`^[0-9]+$`)
	telegramGroupRe = regexp.MustCompile(`^-[0-9]+$`)
	whatsAppUserRe  = regexp.MustCompile(`^[0-9]+@s\.whatsapp\.net$`)
	whatsAppGroupRe = regexp.MustCompile(`^[0-9]+@g\.us$`)
)

// spec describes one platform entry in the registry: how to validate its
// user and group identifiers, and whether groups exist on it at all.
type spec struct {
	validUser  func(string) bool
	validGroup func(string) bool // nil when the platform has no group form
}

// registry holds the per-platform validators. resolutionOrder fixes the
// probe priority for lookups; both must stay in sync when a platform is
// added.
var registry = map[Platform]spec{
	WhatsApp: {
		validUser:  whatsAppUserRe.MatchString,
		validGroup: whatsAppGroupRe.MatchString,
	},
	Telegram: {
		validUser:  digitsRe.MatchString,
		validGroup: telegramGroupRe.MatchString,
	},
	API: {
		validUser: func(s string) bool { return s != "" },
	},
}

var resolutionOrder = []Platform{WhatsApp, Telegram, API}

// ResolutionOrder returns the fixed priority in which platforms are probed
// during identity resolution.
func ResolutionOrder() []Platform {
	out := make([]Platform, len(resolutionOrder))
	copy(out, resolutionOrder)
	return out
}

// GroupPlatforms returns the platforms that have a group identifier form,
// in resolution priority order.
func GroupPlatforms() []Platform {
	var out []Platform
	for _, p := range resolutionOrder {
		if registry[p].validGroup != nil {
			out = append(out, p)
		}
	}
	return out
}

// Parse converts a wire string ("whatsapp", "TELEGRAM", ...) into a
// Platform, rejecting unknown names.
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := registry[p]; !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown platform %q", s), nil)
	}
	return p, nil
}

// ValidateUserID checks a user identifier against the platform's wire
// format. Empty identifiers are always rejected.
func ValidateUserID(p Platform, id string) error {
	sp, ok := registry[p]
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown platform %q", p), nil)
	}
	if id == "" {
		return apperrors.NewValidationError(fmt.Sprintf("empty %s user identifier", p), nil)
	}
	if !sp.validUser(id) {
		return apperrors.NewValidationError(fmt.Sprintf("malformed %s user identifier %q", p, id), nil)
	}
	return nil
}

// ValidateGroupID checks a group identifier against the platform's wire
// format. Platforms without a group form (API) reject every identifier.
func ValidateGroupID(p Platform, id string) error {
	sp, ok := registry[p]
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown platform %q", p), nil)
	}
	if sp.validGroup == nil {
		return apperrors.NewValidationError(fmt.Sprintf("platform %s has no groups", p), nil)
	}
	if id == "" {
		return apperrors.NewValidationError(fmt.Sprintf("empty %s group identifier", p), nil)
	}
	if !sp.validGroup(id) {
		return apperrors.NewValidationError(fmt.Sprintf("malformed %s group identifier %q", p, id), nil)
	}
	return nil
}

// WhatsAppUserID builds the wire form of a WhatsApp user identifier from
// its bare digits.
func WhatsAppUserID(digits string) string {
	return digits + whatsAppUserSuffix
}

// WhatsAppGroupID builds the wire form of a WhatsApp group identifier from
// its bare digits.
func WhatsAppGroupID(digits string) string {
	return digits + whatsAppGroupSuffix
}
