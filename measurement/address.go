package measurement

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
)

const AddressLength = 6

var ErrInvalidAddress = errors.New("invalid device address")

// FormatAddress renders six octets as an uppercase, colon-separated address.
func FormatAddress(octets []byte) (string, error) {
	if len(octets) != AddressLength {
		return "", fmt.Errorf("%w: expected %d octets, got %d", ErrInvalidAddress, AddressLength, len(octets))
	}

	var b strings.Builder
	for i, octet := range octets {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%02X", octet)
	}
	return b.String(), nil
}

// ParseAddress canonicalizes a 48-bit device address given with ':' or '-' delimiters,
// in dotted form, or as 12 bare hex digits, in any case.
func ParseAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if len(address) == 2*AddressLength {
		octets, err := hex.DecodeString(address)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
		}
		return FormatAddress(octets)
	}

	hw, err := net.ParseMAC(address)
	if err != nil || len(hw) != AddressLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	return FormatAddress(hw)
}
