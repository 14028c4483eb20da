package device

import "testing"

func TestNewIsoEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		ep        *Endpoint
		number    uint8
		isIn      bool
		sync      uint8
		usage     uint8
		feedback  bool
		wantAttrs uint8
	}{
		{
			name:      "async data OUT",
			ep:        NewIsoEndpoint(0x01, IsoSyncAsync, IsoUsageData, 294, 1),
			number:    1,
			sync:      IsoSyncAsync,
			usage:     IsoUsageData,
			wantAttrs: 0x05,
		},
		{
			name:      "feedback IN",
			ep:        NewIsoEndpoint(0x81, IsoSyncNone, IsoUsageFeedback, 3, 1),
			number:    1,
			isIn:      true,
			usage:     IsoUsageFeedback,
			feedback:  true,
			wantAttrs: 0x11,
		},
		{
			name:      "stray bits masked",
			ep:        NewIsoEndpoint(0x02, 0xFF, 0xFF, 192, 1),
			number:    2,
			sync:      IsoSyncSync,
			usage:     0x30,
			wantAttrs: 0x3D,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ep.Number(); got != tt.number {
				t.Errorf("Number() = %d, want %d", got, tt.number)
			}
			if got := tt.ep.IsIn(); got != tt.isIn {
				t.Errorf("IsIn() = %v, want %v", got, tt.isIn)
			}
			if !tt.ep.IsIsochronous() {
				t.Error("IsIsochronous() = false")
			}
			if got := tt.ep.IsoSyncType(); got != tt.sync {
				t.Errorf("IsoSyncType() = 0x%02X, want 0x%02X", got, tt.sync)
			}
			if got := tt.ep.IsoUsageType(); got != tt.usage {
				t.Errorf("IsoUsageType() = 0x%02X, want 0x%02X", got, tt.usage)
			}
			if got := tt.ep.IsFeedback(); got != tt.feedback {
				t.Errorf("IsFeedback() = %v, want %v", got, tt.feedback)
			}
			if tt.ep.Attributes != tt.wantAttrs {
				t.Errorf("Attributes = 0x%02X, want 0x%02X", tt.ep.Attributes, tt.wantAttrs)
			}
		})
	}
}

func TestEndpointStall(t *testing.T) {
	ep := NewIsoEndpoint(0x01, IsoSyncAsync, IsoUsageData, 294, 1)

	if ep.IsStalled() {
		t.Error("new endpoint should not be stalled")
	}
	ep.SetStall(true)
	if !ep.IsStalled() {
		t.Error("endpoint should be stalled after SetStall(true)")
	}
	ep.SetStall(false)
	if ep.IsStalled() {
		t.Error("endpoint should not be stalled after SetStall(false)")
	}
}

func TestEndpointString(t *testing.T) {
	tests := []struct {
		ep   *Endpoint
		want string
	}{
		{NewIsoEndpoint(0x01, IsoSyncAsync, IsoUsageData, 294, 1), "EP1 OUT iso async data/294"},
		{NewIsoEndpoint(0x81, IsoSyncNone, IsoUsageFeedback, 3, 1), "EP1 IN iso none feedback/3"},
		{NewIsoEndpoint(0x02, IsoSyncAdaptive, IsoUsageImplicit, 8, 1), "EP2 OUT iso adaptive implicit/8"},
	}

	for _, tt := range tests {
		if got := tt.ep.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestTransferTypeName(t *testing.T) {
	tests := []struct {
		t    uint8
		want string
	}{
		{EndpointTypeControl, "control"},
		{EndpointTypeIsochronous, "iso"},
		{EndpointTypeBulk, "bulk"},
		{EndpointTypeInterrupt, "interrupt"},
		{0x05, "iso"},
	}

	for _, tt := range tests {
		if got := TransferTypeName(tt.t); got != tt.want {
			t.Errorf("TransferTypeName(%d) = %q, want %q", tt.t, got, tt.want)
		}
	}
}
