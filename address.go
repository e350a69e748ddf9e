package omronfins

import (
	"fmt"
	"net"
	"strconv"
)

// DefaultPort is the well-known FINS/UDP port.
const DefaultPort = 9600

// FinsAddress A FINS endpoint identity: network address, node number and unit address.
// Values are passed to the wire unchecked; a node outside 1-126 (or 255 for
// broadcast) is answered by the PLC with an error completion code.
type FinsAddress struct {
	Network byte
	Node    byte
	Unit    byte
}

func (a FinsAddress) String() string {
	return fmt.Sprintf("net=%d node=%d unit=%d", a.Network, a.Node, a.Unit)
}

// Address A full device address
type Address struct {
	FinAddress FinsAddress
	UdpAddress *net.UDPAddr
}

// NewAddress builds an address for a FINS endpoint reachable over UDP.
// A zero port selects DefaultPort.
func NewAddress(ip string, port int, network, node, unit byte) Address {
	if port == 0 {
		port = DefaultPort
	}
	return Address{
		UdpAddress: &net.UDPAddr{
			IP:   net.ParseIP(ip),
			Port: port,
		},
		FinAddress: FinsAddress{
			Network: network,
			Node:    node,
			Unit:    unit,
		},
	}
}

// ResolveAddress is NewAddress for a host name or IP literal.
func ResolveAddress(host string, port int, network, node, unit byte) (Address, error) {
	if port == 0 {
		port = DefaultPort
	}
	udp, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return Address{}, fmt.Errorf("resolve %s: %w", host, err)
	}
	return Address{
		UdpAddress: udp,
		FinAddress: FinsAddress{Network: network, Node: node, Unit: unit},
	}, nil
}

// NewLocalAddress builds a source identity and lets the OS pick the local socket.
func NewLocalAddress(network, node, unit byte) Address {
	return Address{
		FinAddress: FinsAddress{
			Network: network,
			Node:    node,
			Unit:    unit,
		},
		UdpAddress: nil,
	}
}
