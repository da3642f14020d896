package net

import (
	"fmt"
	gonet "net"
	"strings"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// ParseAddress accepts either "host:port" or a multiaddr and returns the
// transport part of the address together with the peer ID it carries, if
// any. "host:port" is converted to /ip4, /ip6 or /dns4 over /tcp.
func ParseAddress(address string) (ma.Multiaddr, peer.ID, error) {
	var (
		m   ma.Multiaddr
		err error
	)

	if strings.HasPrefix(address, "/") {
		m, err = ma.NewMultiaddr(address)
	} else {
		m, err = hostPortToMultiaddr(address)
	}
	if err != nil {
		return nil, "", err
	}

	transport, id := peer.SplitAddr(m)
	if transport == nil {
		return nil, "", fmt.Errorf("address %s has no transport part", address)
	}

	return transport, id, nil
}

// NormalizeAddress returns the canonical transport form of address, which is
// the form used in events and to key known addresses. Addresses which cannot
// be parsed are returned unchanged.
func NormalizeAddress(address string) string {
	transport, _, err := ParseAddress(address)
	if err != nil {
		return address
	}
	return transport.String()
}

func hostPortToMultiaddr(address string) (ma.Multiaddr, error) {
	host, port, err := gonet.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	proto := "dns4"
	if ip := gonet.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			proto = "ip4"
		} else {
			proto = "ip6"
		}
	}

	return ma.NewMultiaddr(fmt.Sprintf("/%s/%s/tcp/%s", proto, host, port))
}
