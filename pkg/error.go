package pkg

import "errors"

// Streaming errors.
var (
	// ErrOverrun indicates a write found too little free space in a buffer.
	ErrOverrun = errors.New("data overrun")

	// ErrUnderrun indicates a read found too little buffered data.
	ErrUnderrun = errors.New("data underrun")

	// ErrStall indicates the request was answered with a protocol stall.
	ErrStall = errors.New("endpoint stalled")

	// ErrFlushed indicates a transfer was discarded by an endpoint flush.
	ErrFlushed = errors.New("transfer flushed")

	// ErrIncomplete indicates an isochronous transfer missed its frame.
	ErrIncomplete = errors.New("isochronous transfer incomplete")
)

// Request and state errors.
var (
	// ErrInvalidRequest indicates an invalid or unsupported request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidState indicates the operation is not legal in the current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotConfigured indicates the audio function has no active configuration.
	ErrNotConfigured = errors.New("not configured")

	// ErrNotSupported indicates an unsupported sample rate, format or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrLengthMismatch indicates a data stage whose length differs from
	// the length the control selector requires.
	ErrLengthMismatch = errors.New("data stage length mismatch")
)

// Output device errors.
var (
	// ErrOutputInit indicates the output device failed to start.
	ErrOutputInit = errors.New("output device init failed")

	// ErrOutputDeInit indicates the output device failed to stop cleanly.
	ErrOutputDeInit = errors.New("output device deinit failed")

	// ErrAlreadyRunning indicates the transport is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the transport is not running.
	ErrNotRunning = errors.New("not running")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("closed")
)

// TransferStatus represents the completion status of an endpoint transfer
// as reported by a HAL.
type TransferStatus int

// Transfer status values.
const (
	TransferStatusSuccess    TransferStatus = iota // Transfer completed successfully
	TransferStatusError                            // Transfer failed with error
	TransferStatusStall                            // Endpoint stalled
	TransferStatusIncomplete                       // Isochronous frame missed
	TransferStatusFlushed                          // Discarded by flush
	TransferStatusOverrun                          // Data overrun
	TransferStatusUnderrun                         // Data underrun
)

// String returns a string representation of the transfer status.
func (s TransferStatus) String() string {
	switch s {
	case TransferStatusSuccess:
		return "success"
	case TransferStatusError:
		return "error"
	case TransferStatusStall:
		return "stall"
	case TransferStatusIncomplete:
		return "incomplete"
	case TransferStatusFlushed:
		return "flushed"
	case TransferStatusOverrun:
		return "overrun"
	case TransferStatusUnderrun:
		return "underrun"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the transfer status.
func (s TransferStatus) Error() error {
	switch s {
	case TransferStatusSuccess:
		return nil
	case TransferStatusStall:
		return ErrStall
	case TransferStatusIncomplete:
		return ErrIncomplete
	case TransferStatusFlushed:
		return ErrFlushed
	case TransferStatusOverrun:
		return ErrOverrun
	case TransferStatusUnderrun:
		return ErrUnderrun
	default:
		return ErrInvalidState
	}
}
