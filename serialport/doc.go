// Package serialport connects a recorder.Recorder to a real serial device
// through go.bug.st/serial.
//
// A Port opens the device at 1200 baud 7E1, switches to 8N1 for binary data
// packets, strips the parity bit from received characters, and can consume
// the transmit echo of single-wire RS-485 or open-collector adapters.
//
//	port, err := serialport.Open("/dev/ttyUSB0", serialport.WithEchoCancel(true))
//	if err != nil {
//		return err
//	}
//	defer port.Close()
//
//	rec, err := recorder.New(port)
package serialport
