package omronfins

import "bytes"

const (
	// HeaderSize is the length of a FINS/UDP header.
	HeaderSize = 10

	// DefaultResponseDelay is the response delay used when none is configured,
	// in units of 10 ms.
	DefaultResponseDelay byte = 2
)

const (
	icfIndex          = 0
	rsvIndex          = 1
	gatewayCountIndex = 2
	dstNetworkIndex   = 3
	dstNodeIndex      = 4
	dstUnitIndex      = 5
	srcNetworkIndex   = 6
	srcNodeIndex      = 7
	srcUnitIndex      = 8
	serviceIDIndex    = 9
)

// Fixed leading bytes of every command frame: ICF (command, response
// required, gateway in use), reserved, gateway count 2.
var headerSignature = [3]byte{0x80, 0x00, 0x02}

// Header A FINS frame header
type Header struct {
	Source      FinsAddress
	Destination FinsAddress
	ServiceID   byte

	// ResponseDelay is kept with the destination settings in 10 ms units.
	// It is not part of the encoded header.
	ResponseDelay byte
}

// NewHeader returns the header a client with identity src uses to talk to dst.
func NewHeader(src, dst FinsAddress, serviceID, responseDelay byte) Header {
	return Header{
		Source:        src,
		Destination:   dst,
		ServiceID:     serviceID,
		ResponseDelay: responseDelay,
	}
}

// Bytes encodes the header into its 10-byte wire form.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	b[icfIndex] = headerSignature[0]
	b[rsvIndex] = headerSignature[1]
	b[gatewayCountIndex] = headerSignature[2]
	b[dstNetworkIndex] = h.Destination.Network
	b[dstNodeIndex] = h.Destination.Node
	b[dstUnitIndex] = h.Destination.Unit
	b[srcNetworkIndex] = h.Source.Network
	b[srcNodeIndex] = h.Source.Node
	b[srcUnitIndex] = h.Source.Unit
	b[serviceIDIndex] = h.ServiceID
	return b
}

// BuildHeader encodes the header for the given source, destination and service id.
func BuildHeader(src, dst FinsAddress, serviceID, responseDelay byte) []byte {
	return NewHeader(src, dst, serviceID, responseDelay).Bytes()
}

// ParseHeader reads the addressing fields back out of the first 10 bytes of a frame.
// The signature bytes are not checked, so response headers parse as well.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, TruncatedError{Length: len(b), Want: HeaderSize}
	}
	return Header{
		Destination: FinsAddress{b[dstNetworkIndex], b[dstNodeIndex], b[dstUnitIndex]},
		Source:      FinsAddress{b[srcNetworkIndex], b[srcNodeIndex], b[srcUnitIndex]},
		ServiceID:   b[serviceIDIndex],
	}, nil
}

// IsResponseToMe reports whether the header portion of response matches the
// header this client sent. Only the first 10 bytes are compared; command
// code, completion code and payload are ignored.
func IsResponseToMe(response, expectedHeader []byte) bool {
	if len(response) < HeaderSize || len(expectedHeader) < HeaderSize {
		return false
	}
	return bytes.Equal(response[:HeaderSize], expectedHeader[:HeaderSize])
}
