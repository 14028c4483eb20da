// Package oto implements hal.Transport on the system audio device using
// github.com/ebitengine/oto/v3.
//
// The player pulls 16-bit samples from the circular buffer; every time it
// crosses a segment boundary the scheduler is told to refill the half just
// consumed. Segment timing therefore follows the sound card's clock, which
// is what the feedback loop corrects for.
package oto
