package uac

import "fmt"

// VolumeRange describes the feature unit volume control in UAC 1/256 dB
// codes.
type VolumeRange struct {
	Min int16 // GET_MIN
	Max int16 // GET_MAX
	Res int16 // GET_RES
}

// DefaultVolumeRange spans -96 dB to 0 dB in 3 dB steps.
var DefaultVolumeRange = VolumeRange{
	Min: -0x6000, // 0xA000
	Max: 0x0000,
	Res: 0x0300,
}

// Validate reports whether the range is usable.
func (r VolumeRange) Validate() error {
	if r.Min >= r.Max {
		return fmt.Errorf("volume min 0x%04X not below max 0x%04X", uint16(r.Min), uint16(r.Max))
	}
	if r.Res <= 0 {
		return fmt.Errorf("volume resolution 0x%04X not positive", uint16(r.Res))
	}
	return nil
}

// Clamp limits code to the range.
func (r VolumeRange) Clamp(code int16) int16 {
	return max(r.Min, min(code, r.Max))
}

// Percent maps a volume code linearly onto 0 to 100. Min maps to 0 and
// max maps to 100; codes outside the range are clamped.
func (r VolumeRange) Percent(code int16) uint8 {
	code = r.Clamp(code)
	span := int32(r.Max) - int32(r.Min)
	return uint8((int32(code) - int32(r.Min)) * 100 / span)
}

// CodeForPercent is the inverse of Percent, exact at 0 and 100.
func (r VolumeRange) CodeForPercent(percent uint8) int16 {
	percent = min(percent, 100)
	span := int32(r.Max) - int32(r.Min)
	return int16(int32(r.Min) + int32(percent)*span/100)
}

// VolumeDB converts a volume code to decibels.
func VolumeDB(code int16) float64 {
	return float64(code) / 256
}
