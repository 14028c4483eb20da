// Package config loads the speaker configuration from YAML.
//
// Every key has a built-in default, so a file only needs the values it
// changes:
//
//	stream:
//	  rate: 44100
//	feedback:
//	  bias_hz: 50
//	log:
//	  level: debug
//	  backend: zap
//
// Durations accept Go duration strings ("250ms", "5s"). Volume values
// are in dB and are converted to 1/256 dB codes by [Volume.Codes].
// Unknown keys are an error.
//
// [Manager.Watch] re-reads the file when it is written. Only values that
// are safe to change while streaming (the log level) should be applied
// from the callback; the rest take effect on the next start.
package config
