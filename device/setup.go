package device

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softdac/pkg"
)

// Standard requests the audio function answers itself.
const (
	RequestGetInterface = 0x0A
	RequestSetInterface = 0x0B
)

// Request type masks (USB 2.0 Spec Table 9-2).
const (
	RequestTypeDirectionMask = 0x80 // Direction bit mask
	RequestTypeTypeMask      = 0x60 // Type bits mask
	RequestTypeRecipientMask = 0x1F // Recipient bits mask
)

// Request type direction values.
const (
	RequestDirectionHostToDevice = 0x00 // Host to device
	RequestDirectionDeviceToHost = 0x80 // Device to host
)

// Request type values.
const (
	RequestTypeStandard = 0x00 // Standard request
	RequestTypeClass    = 0x20 // Class-specific request
	RequestTypeVendor   = 0x40 // Vendor-specific request
)

// Request recipient values.
const (
	RequestRecipientDevice    = 0x00 // Device recipient
	RequestRecipientInterface = 0x01 // Interface recipient
	RequestRecipientEndpoint  = 0x02 // Endpoint recipient
	RequestRecipientOther     = 0x03 // Other recipient
)

// SetupPacket represents an 8-byte USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // bmRequestType: direction, type, recipient
	Request     uint8  // bRequest: specific request code
	Value       uint16 // wValue: request-specific parameter
	Index       uint16 // wIndex: request-specific index
	Length      uint16 // wLength: number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket parses a setup packet from 8 bytes into out.
// Returns an error if the data is too short.
func ParseSetupPacket(data []byte, out *SetupPacket) error {
	if len(data) < SetupPacketSize {
		return pkg.ErrSetupPacketTooShort
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

// MarshalTo serializes the setup packet to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

// IsDeviceToHost returns true if this is a device-to-host transfer.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

// Type returns the request type (Standard, Class, or Vendor).
func (s *SetupPacket) Type() uint8 {
	return s.RequestType & RequestTypeTypeMask
}

// IsStandard returns true if this is a standard request.
func (s *SetupPacket) IsStandard() bool {
	return s.Type() == RequestTypeStandard
}

// IsClass returns true if this is a class-specific request.
func (s *SetupPacket) IsClass() bool {
	return s.Type() == RequestTypeClass
}

// Recipient returns the request recipient.
func (s *SetupPacket) Recipient() uint8 {
	return s.RequestType & RequestTypeRecipientMask
}

// IsInterfaceRecipient returns true if the recipient is an interface.
func (s *SetupPacket) IsInterfaceRecipient() bool {
	return s.Recipient() == RequestRecipientInterface
}

// IsEndpointRecipient returns true if the recipient is an endpoint.
func (s *SetupPacket) IsEndpointRecipient() bool {
	return s.Recipient() == RequestRecipientEndpoint
}

// ControlSelector returns the class control selector from wValue high byte.
func (s *SetupPacket) ControlSelector() uint8 {
	return uint8(s.Value >> 8)
}

// ControlNumber returns the channel number from wValue low byte.
func (s *SetupPacket) ControlNumber() uint8 {
	return uint8(s.Value)
}

// EntityID returns the unit or terminal ID from wIndex high byte.
func (s *SetupPacket) EntityID() uint8 {
	return uint8(s.Index >> 8)
}

// InterfaceNumber returns the interface number from wIndex low byte.
func (s *SetupPacket) InterfaceNumber() uint8 {
	return uint8(s.Index)
}

// EndpointAddress returns the endpoint address from wIndex low byte.
func (s *SetupPacket) EndpointAddress() uint8 {
	return uint8(s.Index)
}

// String returns a human-readable representation of the setup packet.
func (s *SetupPacket) String() string {
	dir := "OUT"
	if s.IsDeviceToHost() {
		dir = "IN"
	}
	reqType := "Standard"
	switch s.Type() {
	case RequestTypeClass:
		reqType = "Class"
	case RequestTypeVendor:
		reqType = "Vendor"
	}
	recip := "Device"
	switch s.Recipient() {
	case RequestRecipientInterface:
		recip = "Interface"
	case RequestRecipientEndpoint:
		recip = "Endpoint"
	case RequestRecipientOther:
		recip = "Other"
	}
	return fmt.Sprintf("SETUP[%s %s %s] Request=0x%02X Value=0x%04X Index=0x%04X Length=%d",
		dir, reqType, recip, s.Request, s.Value, s.Index, s.Length)
}

// ClassInterfaceSetup initializes out as a class request addressed to entity
// on interface iface. Requests with bit 7 set in request are device-to-host.
func ClassInterfaceSetup(out *SetupPacket, request, selector, channel, entity, iface uint8, length uint16) {
	out.RequestType = classDirection(request) | RequestTypeClass | RequestRecipientInterface
	out.Request = request
	out.Value = uint16(selector)<<8 | uint16(channel)
	out.Index = uint16(entity)<<8 | uint16(iface)
	out.Length = length
}

// ClassEndpointSetup initializes out as a class request addressed to the
// endpoint at address ep.
func ClassEndpointSetup(out *SetupPacket, request, selector, ep uint8, length uint16) {
	out.RequestType = classDirection(request) | RequestTypeClass | RequestRecipientEndpoint
	out.Request = request
	out.Value = uint16(selector) << 8
	out.Index = uint16(ep)
	out.Length = length
}

func classDirection(request uint8) uint8 {
	if request&0x80 != 0 {
		return RequestDirectionDeviceToHost
	}
	return RequestDirectionHostToDevice
}

// GetSetInterfaceSetup initializes out as a SET_INTERFACE setup packet.
func GetSetInterfaceSetup(out *SetupPacket, interfaceNum, alternateSetting uint8) {
	out.RequestType = RequestDirectionHostToDevice | RequestTypeStandard | RequestRecipientInterface
	out.Request = RequestSetInterface
	out.Value = uint16(alternateSetting)
	out.Index = uint16(interfaceNum)
	out.Length = 0
}

// GetInterfaceSetup initializes out as a GET_INTERFACE setup packet.
func GetInterfaceSetup(out *SetupPacket, interfaceNum uint8) {
	out.RequestType = RequestDirectionDeviceToHost | RequestTypeStandard | RequestRecipientInterface
	out.Request = RequestGetInterface
	out.Value = 0
	out.Index = uint16(interfaceNum)
	out.Length = 1
}
