package netid

import (
	"fmt"
	"net"
	"sort"

	"github.com/vishvananda/netlink"

	"github.com/conn-castle/maintd/internal/messages"
)

// NewProvider returns the netlink based Provider.
func NewProvider() Provider {
	return netlinkProvider{}
}

type netlinkProvider struct{}

// Lookup reads the hardware address and the first IPv4 address of the selected link.
func (netlinkProvider) Lookup(iface string) (Identity, error) {
	link, err := pickLink(iface)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{MAC: MACFromHardwareAddr(link.Attrs().HardwareAddr)}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return id, fmt.Errorf(messages.NetidListAddrsFmt, link.Attrs().Name, err)
	}
	for _, addr := range addrs {
		if addr.IPNet == nil {
			continue
		}
		if ip := IPv4FromIP(addr.IP); ip != 0 {
			id.IPv4 = ip
			break
		}
	}
	return id, nil
}

func pickLink(name string) (netlink.Link, error) {
	if name != "" {
		link, err := netlink.LinkByName(name)
		if err != nil {
			return nil, fmt.Errorf(messages.NetidLinkByNameFmt, name, err)
		}
		return link, nil
	}
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf(messages.NetidListLinksFmt, err)
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].Attrs().Index < links[j].Attrs().Index
	})
	for _, link := range links {
		attrs := link.Attrs()
		if attrs.Flags&net.FlagLoopback != 0 || len(attrs.HardwareAddr) != 6 {
			continue
		}
		if attrs.EncapType != "" && attrs.EncapType != "ether" {
			continue
		}
		return link, nil
	}
	return nil, ErrNoInterface
}
