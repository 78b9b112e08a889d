//go:build !linux

package netid

import (
	"fmt"
	"net"

	"github.com/conn-castle/maintd/internal/messages"
)

// NewProvider returns a Provider built on the net package.
func NewProvider() Provider {
	return ifaceProvider{}
}

type ifaceProvider struct{}

// Lookup reads the hardware address and the first IPv4 address of the selected interface.
func (ifaceProvider) Lookup(name string) (Identity, error) {
	iface, err := pickInterface(name)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{MAC: MACFromHardwareAddr(iface.HardwareAddr)}
	addrs, err := iface.Addrs()
	if err != nil {
		return id, fmt.Errorf(messages.NetidListAddrsFmt, iface.Name, err)
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip := IPv4FromIP(ipnet.IP); ip != 0 {
			id.IPv4 = ip
			break
		}
	}
	return id, nil
}

func pickInterface(name string) (*net.Interface, error) {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf(messages.NetidLinkByNameFmt, name, err)
		}
		return iface, nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf(messages.NetidListLinksFmt, err)
	}
	for i := range ifaces {
		if ifaces[i].Flags&net.FlagLoopback != 0 || len(ifaces[i].HardwareAddr) != 6 {
			continue
		}
		return &ifaces[i], nil
	}
	return nil, ErrNoInterface
}
