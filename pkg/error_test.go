package pkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestTransferStatus_String(t *testing.T) {
	tests := []struct {
		status TransferStatus
		want   string
	}{
		{TransferStatusSuccess, "success"},
		{TransferStatusError, "error"},
		{TransferStatusStall, "stall"},
		{TransferStatusIncomplete, "incomplete"},
		{TransferStatusFlushed, "flushed"},
		{TransferStatusOverrun, "overrun"},
		{TransferStatusUnderrun, "underrun"},
		{TransferStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("TransferStatus.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransferStatus_Error(t *testing.T) {
	tests := []struct {
		status  TransferStatus
		wantErr error
	}{
		{TransferStatusSuccess, nil},
		{TransferStatusStall, ErrStall},
		{TransferStatusIncomplete, ErrIncomplete},
		{TransferStatusFlushed, ErrFlushed},
		{TransferStatusOverrun, ErrOverrun},
		{TransferStatusUnderrun, ErrUnderrun},
		{TransferStatusError, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			err := tt.status.Error()
			if tt.wantErr == nil && err != nil {
				t.Errorf("TransferStatus.Error() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("TransferStatus.Error() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWrappedSentinels(t *testing.T) {
	err := fmt.Errorf("open sink: %w", ErrOutputInit)
	if !errors.Is(err, ErrOutputInit) {
		t.Errorf("errors.Is(%v, ErrOutputInit) = false", err)
	}
	if errors.Is(err, ErrOutputDeInit) {
		t.Errorf("errors.Is(%v, ErrOutputDeInit) = true", err)
	}
}
