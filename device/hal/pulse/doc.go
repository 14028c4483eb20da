// Package pulse implements hal.Codec on a PulseAudio sink through the
// native protocol client in github.com/jfreymuth/pulse/proto.
//
// Volume percent maps linearly onto the sink's normal volume range and is
// applied to every channel. Mute maps onto the sink mute flag.
package pulse
