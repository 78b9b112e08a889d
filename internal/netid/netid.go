// Package netid derives the network identity of the unit: its MAC address,
// its primary IPv4 address and the serial number encoded from the MAC.
package netid

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/conn-castle/maintd/internal/messages"
)

// Vendor OUIs with a dedicated serial number prefix.
const (
	OUIDigi        = 0x00409D
	OUIRaspberryPi = 0xB827EB
	OUIOnion       = 0x40A36B
)

// unknownVendorCode prefixes serials of MACs from any other vendor.
const unknownVendorCode = 42

// Identity is the network identity of one interface.
type Identity struct {
	// MAC holds the 48-bit hardware address in the low bits.
	MAC uint64
	// IPv4 holds the address in host order, 0 when the interface has none.
	IPv4 uint32
}

// Provider looks up the network identity.
type Provider interface {
	// Lookup returns the identity of iface, or of the first ethernet interface when iface is empty.
	Lookup(iface string) (Identity, error)
}

// Static is a Provider returning a fixed identity.
type Static Identity

// Lookup returns the fixed identity.
func (s Static) Lookup(string) (Identity, error) {
	return Identity(s), nil
}

// Serial encodes mac as a unit serial number: the low 24 bits of the MAC with the
// vendor code in the top byte.
func Serial(mac uint64) uint64 {
	serial := mac & 0xFFFFFF
	switch mac >> 24 {
	case OUIDigi:
		serial |= 1 << 24
	case OUIRaspberryPi:
		serial |= 2 << 24
	case OUIOnion:
		serial |= 3 << 24
	default:
		serial |= unknownVendorCode << 24
	}
	return serial
}

// FormatMAC renders mac as six upper-case hex pairs separated by colons.
func FormatMAC(mac uint64) string {
	parts := make([]string, 6)
	for i := range parts {
		parts[i] = fmt.Sprintf("%02X", (mac>>((5-i)*8))&0xFF)
	}
	return strings.Join(parts, ":")
}

// FormatIPv4 renders ip in dotted decimal notation.
func FormatIPv4(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", ip>>24&0xFF, ip>>16&0xFF, ip>>8&0xFF, ip&0xFF)
}

// MACFromHardwareAddr packs a 6-byte hardware address.
func MACFromHardwareAddr(hw net.HardwareAddr) uint64 {
	var mac uint64
	if len(hw) != 6 {
		return 0
	}
	for _, b := range hw {
		mac = mac<<8 | uint64(b)
	}
	return mac
}

// IPv4FromIP packs an IPv4 address, returning 0 for anything else.
func IPv4FromIP(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
}

// ErrNoInterface is returned when no ethernet interface exists.
var ErrNoInterface = errors.New(messages.NetidNoInterface)
