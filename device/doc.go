// Package device provides the USB device primitives the audio function is
// built from: SETUP packet parsing and class request addressing, isochronous
// endpoints, interfaces with alternate settings, and a configuration that
// routes requests to class drivers.
//
// Enumeration, descriptor tables and the standard request set live outside
// this module; a HAL or host delivers already-routed events.
//
// # Class Drivers
//
// The [ClassDriver] interface binds a USB class implementation to one or more
// interfaces:
//
//	type ClassDriver interface {
//	    Init(iface *Interface) error
//	    HandleSetup(iface *Interface, setup *SetupPacket, data []byte) (bool, error)
//	    SetAlternate(iface *Interface, alt uint8) error
//	    Close() error
//	}
//
// The USB Audio Class 1.0 speaker driver lives in
// [github.com/ardnew/softdac/device/class/uac].
//
// # Zero-Allocation Design
//
// Serialization uses MarshalTo(buf), parse functions fill caller-owned
// outputs, and endpoints and interfaces are held in fixed-size arrays.
//
// # Example
//
//	cfg := device.NewConfiguration(1)
//	ac := device.NewInterface(0, device.AudioSubClassControl, 1)
//	as := device.NewInterface(1, device.AudioSubClassStreaming, 2)
//	as.AddEndpoint(device.NewIsoEndpoint(0x01, device.IsoSyncAsync, device.IsoUsageData, 294, 1))
//	cfg.AddInterface(ac)
//	cfg.AddInterface(as)
package device
