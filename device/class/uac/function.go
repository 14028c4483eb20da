package uac

import (
	"fmt"

	"github.com/ardnew/softdac/device"
)

// Attach adds the AudioControl and AudioStreaming interfaces described by
// the driver's Config to config and binds the driver to both. The
// streaming interface carries the data and feedback endpoints with two
// alternate settings.
func (a *Audio) Attach(config *device.Configuration) error {
	control := device.NewInterface(a.cfg.ControlInterface, device.AudioSubClassControl, 1)
	stream := device.NewInterface(a.cfg.StreamingInterface, device.AudioSubClassStreaming, 2)

	if err := stream.AddEndpoint(device.NewIsoEndpoint(a.cfg.OutEndpoint,
		device.IsoSyncAsync, device.IsoUsageData, a.cfg.MaxPacket, 1)); err != nil {
		return fmt.Errorf("data endpoint: %w", err)
	}
	if err := stream.AddEndpoint(device.NewIsoEndpoint(a.cfg.FeedbackEndpoint,
		device.IsoSyncNone, device.IsoUsageFeedback, FeedbackSize, 1)); err != nil {
		return fmt.Errorf("feedback endpoint: %w", err)
	}

	for _, iface := range []*device.Interface{control, stream} {
		if err := config.AddInterface(iface); err != nil {
			return fmt.Errorf("interface %d: %w", iface.Number, err)
		}
		if err := iface.SetClassDriver(a); err != nil {
			return fmt.Errorf("interface %d: %w", iface.Number, err)
		}
	}
	return nil
}
