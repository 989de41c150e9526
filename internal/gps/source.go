package gps

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
)

// LineSource is anything that can provide raw NMEA lines over time:
// a serial GPS, the mock source, maybe a replay file later.
type LineSource interface {
	Next() (string, error)
	Close() error
}

// SerialSource reads NMEA lines from a GPS receiver on a serial port.
type SerialSource struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
}

// OpenSerial opens the GPS serial port. Typical names: /dev/ttyUSB0,
// /dev/serial0, /dev/ttyAMA0.
func OpenSerial(portName string, baud int) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open GPS serial %s: %w", portName, err)
	}
	return NewReaderSource(port), nil
}

// NewReaderSource wraps any byte stream carrying newline-terminated NMEA.
func NewReaderSource(rwc io.ReadWriteCloser) *SerialSource {
	return &SerialSource{port: rwc, reader: bufio.NewReader(rwc)}
}

// Next returns the next line with the line ending stripped. Blank lines
// are skipped.
func (s *SerialSource) Next() (string, error) {
	for {
		line, err := s.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func (s *SerialSource) Close() error {
	return s.port.Close()
}
