// Package datasource finds serial ports, talks to the sensor device over one
// of them, and watches the device directory for ports coming and going.
package datasource

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/daviddao/vitals_viewer/internal/sample"
)

// ErrEmptyLine is returned by ParseLine for blank input.
var ErrEmptyLine = errors.New("empty line")

// ErrNotFinite is returned by ParseLine for NaN or infinite values.
var ErrNotFinite = errors.New("not a finite number")

// serialPrefixes match device-node names that belong to serial ports.
var serialPrefixes = []string{"ttyUSB", "ttyACM", "ttyAMA", "ttyS", "rfcomm", "tty.", "cu."}

// Discover lists the serial ports present on the system, sorted by name.
func Discover() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list serial ports")
	}
	slices.Sort(ports)
	return ports, nil
}

// IsSerialName reports whether a device-node base name looks like a serial port.
func IsSerialName(base string) bool {
	for _, p := range serialPrefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return false
}

// ParseLine decodes one line from the device into a tuple. Values may be
// separated by commas, semicolons, tabs or spaces. Any token that is not a
// finite number rejects the whole line.
func ParseLine(line string) (sample.Tuple, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		switch r {
		case ',', ';', '\t', ' ', '\r', '\n':
			return true
		}
		return false
	})
	if len(fields) == 0 {
		return nil, ErrEmptyLine
	}
	t := make(sample.Tuple, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", i)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(ErrNotFinite, "field %d", i)
		}
		t[i] = v
	}
	return t, nil
}
