package device

import (
	"fmt"
	"sync"

	"github.com/ardnew/softdac/pkg"
)

// Endpoint transfer types (USB 2.0 Spec Table 9-13).
const (
	EndpointTypeControl     = 0x00 // Control transfer
	EndpointTypeIsochronous = 0x01 // Isochronous transfer
	EndpointTypeBulk        = 0x02 // Bulk transfer
	EndpointTypeInterrupt   = 0x03 // Interrupt transfer
)

// Endpoint directions.
const (
	EndpointDirectionOut = 0x00 // Host to device
	EndpointDirectionIn  = 0x80 // Device to host
)

// Isochronous synchronization types (bits 2-3 of Attributes).
const (
	IsoSyncNone     = 0x00 // No synchronization
	IsoSyncAsync    = 0x04 // Asynchronous
	IsoSyncAdaptive = 0x08 // Adaptive
	IsoSyncSync     = 0x0C // Synchronous
)

// Isochronous usage types (bits 4-5 of Attributes).
const (
	IsoUsageData     = 0x00 // Data endpoint
	IsoUsageFeedback = 0x10 // Feedback endpoint
	IsoUsageImplicit = 0x20 // Implicit feedback data endpoint
)

// Endpoint represents an isochronous audio endpoint or its feedback
// companion.
type Endpoint struct {
	Address       uint8  // Endpoint address including direction
	Attributes    uint8  // Transfer type and sync/usage for isochronous
	MaxPacketSize uint16 // Maximum packet size
	Interval      uint8  // Polling interval

	// Refresh is the feedback refresh exponent (bRefresh, 2^n frames).
	Refresh uint8
	// SynchAddress is the paired feedback endpoint (bSynchAddress).
	SynchAddress uint8

	stalled bool
	mutex   sync.Mutex
}

// NewIsoEndpoint creates an isochronous endpoint with the given
// synchronization and usage bits.
func NewIsoEndpoint(address, sync, usage uint8, maxPacket uint16, interval uint8) *Endpoint {
	return &Endpoint{
		Address:       address,
		Attributes:    EndpointTypeIsochronous | sync&0x0C | usage&0x30,
		MaxPacketSize: maxPacket,
		Interval:      interval,
	}
}

// Number returns the endpoint number (0-15).
func (e *Endpoint) Number() uint8 {
	return e.Address & 0x0F
}

// Direction returns the endpoint direction (EndpointDirectionIn or EndpointDirectionOut).
func (e *Endpoint) Direction() uint8 {
	return e.Address & 0x80
}

// IsIn returns true if this is an IN endpoint (device to host).
func (e *Endpoint) IsIn() bool {
	return e.Direction() == EndpointDirectionIn
}

// TransferType returns the transfer type.
func (e *Endpoint) TransferType() uint8 {
	return e.Attributes & 0x03
}

// IsIsochronous returns true if this is an isochronous endpoint.
func (e *Endpoint) IsIsochronous() bool {
	return e.TransferType() == EndpointTypeIsochronous
}

// IsoSyncType returns the isochronous synchronization type.
func (e *Endpoint) IsoSyncType() uint8 {
	return e.Attributes & 0x0C
}

// IsoUsageType returns the isochronous usage type.
func (e *Endpoint) IsoUsageType() uint8 {
	return e.Attributes & 0x30
}

// IsFeedback returns true for an explicit feedback endpoint.
func (e *Endpoint) IsFeedback() bool {
	return e.IsIsochronous() && e.IsoUsageType() == IsoUsageFeedback
}

// SetStall sets or clears the stall condition.
func (e *Endpoint) SetStall(stalled bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.stalled = stalled
	if stalled {
		pkg.LogDebug(pkg.ComponentDevice, "endpoint stalled",
			"address", fmt.Sprintf("0x%02X", e.Address))
	} else {
		pkg.LogDebug(pkg.ComponentDevice, "endpoint stall cleared",
			"address", fmt.Sprintf("0x%02X", e.Address))
	}
}

// IsStalled returns true if the endpoint is stalled.
func (e *Endpoint) IsStalled() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.stalled
}

// String returns a short description such as "EP1 OUT iso async data/192".
func (e *Endpoint) String() string {
	return fmt.Sprintf("EP%d %s %s %s %s/%d", e.Number(), DirectionName(e.Direction()),
		TransferTypeName(e.TransferType()), syncName(e.IsoSyncType()),
		usageName(e.IsoUsageType()), e.MaxPacketSize)
}

// TransferTypeName returns a human-readable transfer type name.
func TransferTypeName(t uint8) string {
	switch t & 0x03 {
	case EndpointTypeControl:
		return "control"
	case EndpointTypeIsochronous:
		return "iso"
	case EndpointTypeBulk:
		return "bulk"
	default:
		return "interrupt"
	}
}

// DirectionName returns a human-readable direction name.
func DirectionName(dir uint8) string {
	if dir == EndpointDirectionIn {
		return "IN"
	}
	return "OUT"
}

func syncName(s uint8) string {
	switch s {
	case IsoSyncAsync:
		return "async"
	case IsoSyncAdaptive:
		return "adaptive"
	case IsoSyncSync:
		return "sync"
	default:
		return "none"
	}
}

func usageName(u uint8) string {
	switch u {
	case IsoUsageFeedback:
		return "feedback"
	case IsoUsageImplicit:
		return "implicit"
	default:
		return "data"
	}
}
