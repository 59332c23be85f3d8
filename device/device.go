package device

import (
	"strings"

	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/response"
)

// Vendor is the name prefix every Ruuvi tag advertises.
const Vendor = "Ruuvi"

type Device struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type Collection struct {
	Items      []Device            `json:"items"`
	Pagination response.Pagination `json:"pagination"`
}

// New returns a device with a canonical address. An empty name falls back to the address.
func New(address, name string) (*Device, error) {
	canonical, err := measurement.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = canonical
	}

	return &Device{Address: canonical, Name: name}, nil
}

// DefaultName returns the name a Ruuvi tag advertises: the vendor and the last two address octets.
func DefaultName(address string) string {
	compact := strings.ReplaceAll(address, ":", "")
	if len(compact) < 4 {
		return Vendor
	}
	return Vendor + " " + strings.ToUpper(compact[len(compact)-4:])
}
