package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number has no country prefix and no region
// is given.
const DefaultRegion = "BR"

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("phone number cannot be empty")

// ErrInvalid is returned when a number parses but is not dialable.
var ErrInvalid = errors.New("invalid phone number")

// PhoneType represents the type of phone number.
type PhoneType string

const (
	TypeFixedLine         PhoneType = "FIXED_LINE"
	TypeMobile            PhoneType = "MOBILE"
	TypeFixedLineOrMobile PhoneType = "FIXED_LINE_OR_MOBILE"
	TypeTollFree          PhoneType = "TOLL_FREE"
	TypeVoip              PhoneType = "VOIP"
	TypeUnknown           PhoneType = "UNKNOWN"
)

// Number is a parsed and formatted phone number.
type Number struct {
	E164          string    `json:"e164"`
	International string    `json:"international"`
	National      string    `json:"national"`
	Region        string    `json:"region"`
	Type          PhoneType `json:"type"`
}

// WhatsAppCapable reports whether the number can plausibly hold a WhatsApp
// account.
func (n Number) WhatsAppCapable() bool {
	return n.Type == TypeMobile || n.Type == TypeFixedLineOrMobile
}

// Parse validates raw against region (DefaultRegion when empty) and returns
// its formats.
func Parse(raw, region string) (*Number, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmpty
	}
	if region == "" {
		region = DefaultRegion
	}

	parsed, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return nil, fmt.Errorf("failed to parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return nil, ErrInvalid
	}

	return &Number{
		E164:          phonenumbers.Format(parsed, phonenumbers.E164),
		International: phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL),
		National:      phonenumbers.Format(parsed, phonenumbers.NATIONAL),
		Region:        phonenumbers.GetRegionCodeForNumber(parsed),
		Type:          typeOf(phonenumbers.GetNumberType(parsed)),
	}, nil
}

// Normalize returns raw in E.164 format.
func Normalize(raw, region string) (string, error) {
	n, err := Parse(raw, region)
	if err != nil {
		return "", err
	}
	return n.E164, nil
}

func typeOf(t phonenumbers.PhoneNumberType) PhoneType {
	switch t {
	case phonenumbers.FIXED_LINE:
		return TypeFixedLine
	case phonenumbers.MOBILE:
		return TypeMobile
	case phonenumbers.FIXED_LINE_OR_MOBILE:
		return TypeFixedLineOrMobile
	case phonenumbers.TOLL_FREE:
		return TypeTollFree
	case phonenumbers.VOIP:
		return TypeVoip
	default:
		return TypeUnknown
	}
}
