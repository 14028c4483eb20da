package uac

import (
	"bytes"
	"testing"
)

func TestEncodeFeedback(t *testing.T) {
	tests := []struct {
		rate uint32
		want uint32
		wire []byte
	}{
		{48000, 3145728, []byte{0x00, 0x00, 0x0C}},
		{47810, 3133276, []byte{0xD7, 0xF3, 0x0B}},
		{44133, 2892300, []byte{0x83, 0x08, 0x0B}},
		{95621, 6266618, []byte{0xBE, 0xE7, 0x17}},
		{8000, 524288, []byte{0x00, 0x00, 0x02}},
	}

	for _, tt := range tests {
		got := EncodeFeedback(tt.rate)
		if got != tt.want {
			t.Errorf("EncodeFeedback(%d) = %d, want %d", tt.rate, got, tt.want)
		}
		var buf [FeedbackSize]byte
		PutFeedback(buf[:], got)
		if !bytes.Equal(buf[:], tt.wire) {
			t.Errorf("PutFeedback(%d) = % X, want % X", got, buf, tt.wire)
		}
		if v := ParseFeedback(buf[:]); v != got>>2 {
			t.Errorf("ParseFeedback() = %d, want %d", v, got>>2)
		}
		if r := DecodeFeedback(got); r != tt.rate {
			t.Errorf("DecodeFeedback(%d) = %d, want %d", got, r, tt.rate)
		}
	}
}

func TestEncodeFeedback_SamplesPerFrame(t *testing.T) {
	// 48 kHz is exactly 48 samples per 1 ms frame: 48 << 14 in 10.14.
	var buf [FeedbackSize]byte
	PutFeedback(buf[:], EncodeFeedback(48000))
	if got := ParseFeedback(buf[:]); got != 48<<14 {
		t.Errorf("ParseFeedback() = %d, want %d", got, 48<<14)
	}
}

func TestFeedbackController_RealRate(t *testing.T) {
	f := NewFeedbackController(DefaultBiasHz, 1, map[uint32]uint32{32000: 31880, 48000: 47900})
	tests := []struct {
		rate uint32
		want uint32
	}{
		{44100, 44133},
		{48000, 47900},
		{96000, 95621},
		{32000, 31880},
		{16000, 16000},
	}

	for _, tt := range tests {
		if got := f.RealRate(tt.rate); got != tt.want {
			t.Errorf("RealRate(%d) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestFeedbackController_Update(t *testing.T) {
	f := NewFeedbackController(DefaultBiasHz, 1, nil)
	f.Reset(48000)

	nominal := EncodeFeedback(47810)
	if st := f.State(); st.Nominal != nominal || st.Target != nominal || st.RealRate != 47810 {
		t.Fatalf("State() after Reset = %+v", st)
	}

	tests := []struct {
		name string
		fill uint8
		want uint32
	}{
		{"half full", 50, nominal},
		{"over half", 51, EncodeFeedback(47710)},
		{"full", 100, EncodeFeedback(47710)},
		{"under half", 49, EncodeFeedback(47910)},
		{"empty", 0, EncodeFeedback(47910)},
		{"back to half", 50, nominal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Update(tt.fill); got != tt.want {
				t.Errorf("Update(%d) = %d, want %d", tt.fill, got, tt.want)
			}
			var want [FeedbackSize]byte
			PutFeedback(want[:], tt.want)
			if !bytes.Equal(f.Payload(), want[:]) {
				t.Errorf("Payload() = % X, want % X", f.Payload(), want)
			}
			if f.State().LastFill != tt.fill {
				t.Errorf("LastFill = %d, want %d", f.State().LastFill, tt.fill)
			}
		})
	}
}

func TestFeedbackController_Reset(t *testing.T) {
	f := NewFeedbackController(DefaultBiasHz, 4, nil)
	f.Reset(44100)
	f.Update(90)
	f.Tick()

	f.Reset(96000)
	st := f.State()
	if st.Target != st.Nominal || st.Nominal != EncodeFeedback(95621) {
		t.Errorf("State() after Reset = %+v", st)
	}
	if st.LastFill != 50 {
		t.Errorf("LastFill = %d, want 50", st.LastFill)
	}
	if f.Due() {
		t.Error("Due() = true right after Reset")
	}
}

func TestFeedbackController_Window(t *testing.T) {
	f := NewFeedbackController(DefaultBiasHz, 3, nil)
	f.Reset(48000)

	for i := 0; i < 2; i++ {
		f.Tick()
		if f.Due() {
			t.Fatalf("Due() after %d ticks", i+1)
		}
	}
	f.Tick()
	if !f.Due() {
		t.Fatal("Due() = false after 3 ticks")
	}
	f.Update(50)
	if f.Due() {
		t.Error("Due() = true after Update")
	}

	every := NewFeedbackController(DefaultBiasHz, 0, nil)
	every.Reset(48000)
	if !every.Due() {
		t.Error("zero window should always be due")
	}
}

func TestFeedbackController_BiasClamp(t *testing.T) {
	tests := []struct {
		in, want uint32
	}{
		{0, MinBiasHz},
		{100, 100},
		{5000, MaxBiasHz},
	}
	for _, tt := range tests {
		f := NewFeedbackController(tt.in, 1, nil)
		if got := f.State().BiasHz; got != tt.want {
			t.Errorf("BiasHz(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
