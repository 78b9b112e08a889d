package maint

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"strings"

	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/defsfile"
	"github.com/conn-castle/maintd/internal/invoke"
	"github.com/conn-castle/maintd/internal/messages"
	"github.com/conn-castle/maintd/internal/tz"
)

// emptyIP replaces IP values the network tool does not report.
const emptyIP = "0.0.0.0"

// wifiInterfaces are configured in this order.
var wifiInterfaces = []string{"cli", "ap"}

// IPConfig is the answer of an ipconfig query.
type IPConfig struct {
	CurrentIP  string `json:"currentip"`
	DHCP       bool   `json:"dhcp"`
	IPv6       bool   `json:"ipv6"`
	IPAddr     string `json:"ipaddr"`
	IPv6Link   string `json:"ipv6_link"`
	IPv6Global string `json:"ipv6_global"`
	Netmask    string `json:"netmask"`
	GatewayIP  string `json:"gatewayip"`
	DNSIP      string `json:"dnsip"`
	DNSIP2     string `json:"dnsip2"`
}

// WifiInterface is the state of one wifi interface.
type WifiInterface struct {
	Enabled    bool   `json:"enabled"`
	SSID       string `json:"ssid"`
	Encryption string `json:"encryption"`
	Key        string `json:"key"`
}

// TimeZone is the answer of a tzconfig query.
type TimeZone struct {
	Name string `json:"timezonename"`
}

// toolVar returns the value of a name=value line in a tool's output, or "".
func toolVar(output string, name string) string {
	prefix := name + "="
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if value, ok := strings.CutPrefix(line, prefix); ok {
			return value
		}
	}
	return ""
}

func toolIPVar(output string, name string) string {
	if value := toolVar(output, name); value != "" {
		return value
	}
	return emptyIP
}

func (d *Dispatcher) ipConfig(req *request) (Reply, error) {
	tool := d.opts.Tools.IPConf
	if !req.params.Has("dhcp") {
		d.inv.System(tool, true, d.continueWith(req.cmd, d.ipQueried))
		return Deferred(), nil
	}
	dhcp, _ := req.params.Bool("dhcp")
	var b strings.Builder
	fmt.Fprintf(&b, "%s dhcp %d;", tool, boolDigit(dhcp))
	names := []string{"dnsip", "dnsip2"}
	if !dhcp {
		names = append([]string{"ipaddr", "netmask", "gatewayip"}, names...)
	}
	for _, name := range names {
		value, ok := req.params.String(name)
		if !ok {
			continue
		}
		addr, err := netip.ParseAddr(value)
		if err != nil || !addr.Is4() {
			return Reply{}, &Error{Code: CodeInvalidIP, Kind: KindInvalid, Message: messages.MaintInvalidIP, Cause: err}
		}
		fmt.Fprintf(&b, "%s %s %s;", tool, name, addr)
	}
	if ipv6, ok := req.params.Bool("ipv6"); ok {
		fmt.Fprintf(&b, "%s ipv6 %d;", tool, boolDigit(ipv6))
	}
	if d.opts.Tools.IPConfCommit {
		fmt.Fprintf(&b, "%s commit now", tool)
	}
	d.inv.System(b.String(), true, d.continueWith(req.cmd, answerNull))
	return Deferred(), nil
}

func (d *Dispatcher) ipQueried(r invoke.Result) (any, error) {
	if r.Err != nil {
		return nil, resultError(r)
	}
	out := r.Output
	return IPConfig{
		CurrentIP:  d.store.Value(defs.KeyStatusIPv4),
		DHCP:       toolVar(out, "dhcp") == "on",
		IPv6:       toolVar(out, "ipv6") == "1",
		IPAddr:     toolIPVar(out, "ipaddr"),
		IPv6Link:   toolVar(out, "ipv6_link"),
		IPv6Global: toolVar(out, "ipv6_global"),
		Netmask:    toolIPVar(out, "netmask"),
		GatewayIP:  toolIPVar(out, "gatewayip"),
		DNSIP:      toolIPVar(out, "dnsip"),
		DNSIP2:     toolIPVar(out, "dnsip2"),
	}, nil
}

func (d *Dispatcher) wifiConfig(req *request) (Reply, error) {
	tool := d.opts.Tools.WifiConf
	var b strings.Builder
	changes := false
	for _, iface := range wifiInterfaces {
		settings, ok := req.params.Object(iface)
		if !ok {
			continue
		}
		changes = true
		if enabled, ok := settings.Bool("enabled"); ok {
			fmt.Fprintf(&b, " %s %s %d;", tool, iface, boolDigit(enabled))
		}
		for _, field := range []string{"ssid", "encryption", "key"} {
			if value, ok := settings.String(field); ok {
				fmt.Fprintf(&b, " %s %s_%s %s;", tool, iface, field, defsfile.ShellQuote(value))
			}
		}
	}
	if !changes {
		d.inv.System(tool, true, d.continueWith(req.cmd, wifiQueried))
		return Deferred(), nil
	}
	fmt.Fprintf(&b, " %s commit now", tool)
	d.inv.System(b.String(), true, d.continueWith(req.cmd, answerNull))
	return Deferred(), nil
}

func wifiQueried(r invoke.Result) (any, error) {
	if r.Err != nil {
		return nil, resultError(r)
	}
	out := r.Output
	result := make(map[string]WifiInterface, len(wifiInterfaces))
	for _, iface := range wifiInterfaces {
		result[iface] = WifiInterface{
			Enabled:    toolVar(out, iface) == "1",
			SSID:       toolVar(out, iface+"_ssid"),
			Encryption: toolVar(out, iface+"_encryption"),
			Key:        toolVar(out, iface+"_key"),
		}
	}
	return result, nil
}

func (d *Dispatcher) tzConfig(req *request) (Reply, error) {
	uci := d.opts.Tools.UCI
	name, ok := req.params.String("timezonename")
	if !ok {
		query := uci + " -q get system.@system[0].zonename"
		d.inv.System(query, true, d.continueWith(req.cmd, func(r invoke.Result) (any, error) {
			if r.Err != nil {
				return nil, resultError(r)
			}
			return TimeZone{Name: r.Trimmed()}, nil
		}))
		return Deferred(), nil
	}
	spec, ok := tz.Lookup(name)
	if !ok {
		return Reply{}, invalid(messages.MaintUnknownTimeZone)
	}
	cmdline := fmt.Sprintf(
		"%[1]s set system.@system[0].zonename=%[2]s;"+
			"%[1]s set system.@system[0].timezone=%[3]s;"+
			"%[1]s commit system;"+
			"echo $(%[1]s -q get system.@system[0].timezone) >%[4]s",
		uci, defsfile.ShellQuote(name), defsfile.ShellQuote(spec), filepath.Join(d.opts.TmpDir, "TZ"),
	)
	d.inv.System(cmdline, true, d.continueWith(req.cmd, answerNull))
	return Deferred(), nil
}

func boolDigit(v bool) int {
	if v {
		return 1
	}
	return 0
}
