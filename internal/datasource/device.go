package datasource

import (
	"bufio"
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/daviddao/vitals_viewer/internal/sample"
)

// DefaultBaud is used when a Device has no baud rate set.
const DefaultBaud = 115200

// writePoll is how often queued commands are flushed to the port.
const writePoll = 50 * time.Millisecond

// Opener opens a named port at a baud rate.
type Opener func(name string, baud int) (io.ReadWriteCloser, error)

// OpenSerial opens a real serial port.
func OpenSerial(name string, baud int) (io.ReadWriteCloser, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	return p, nil
}

// Device is the single sensor connection. Decoded lines go to In; commands
// queued on Out are written to the port while connected.
type Device struct {
	In  *sample.Queue[sample.Tuple]
	Out *sample.Queue[string]

	Baud int
	EOL  string // appended to every outbound command
	Open Opener

	mu     sync.Mutex
	port   io.ReadWriteCloser
	name   string
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lines   atomic.Uint64
	dropped atomic.Uint64
	sent    atomic.Uint64
}

// NewDevice returns a disconnected device that opens real serial ports.
func NewDevice(in *sample.Queue[sample.Tuple], out *sample.Queue[string]) *Device {
	return &Device{In: in, Out: out, Baud: DefaultBaud, EOL: "\n", Open: OpenSerial}
}

// Connect opens name and starts the reader and writer. It reports false
// with a nil error if a port is already open.
func (d *Device) Connect(name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port != nil {
		return false, nil
	}
	if name == "" {
		return false, errors.New("no port selected")
	}

	open := d.Open
	if open == nil {
		open = OpenSerial
	}
	baud := d.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := open(name, baud)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.port, d.name, d.cancel = port, name, cancel
	d.wg.Add(2)
	go d.readLoop(port)
	go d.writeLoop(ctx, port)
	log.Printf("datasource: connected to %s at %d baud", name, baud)
	return true, nil
}

// Disconnect closes the open port and waits for its goroutines. It reports
// false if nothing was connected.
func (d *Device) Disconnect() bool {
	d.mu.Lock()
	if d.port == nil {
		d.mu.Unlock()
		return false
	}
	port, name := d.port, d.name
	d.cancel()
	d.port, d.cancel = nil, nil
	d.mu.Unlock()

	if err := port.Close(); err != nil {
		log.Printf("datasource: close %s: %v", name, err)
	}
	d.wg.Wait()
	log.Printf("datasource: disconnected from %s", name)
	return true
}

// Reconnect closes and reopens the last used port.
func (d *Device) Reconnect() (disconnected, connected bool, err error) {
	name := d.Name()
	disconnected = d.Disconnect()
	connected, err = d.Connect(name)
	return disconnected, connected, err
}

// Connected reports whether a port is open.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port != nil
}

// Name is the current or most recently used port name.
func (d *Device) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// Send queues a command for the device.
func (d *Device) Send(cmd string) {
	d.Out.Put(cmd)
}

// Counters returns lines read, lines dropped as undecodable, and commands sent.
func (d *Device) Counters() (lines, dropped, sent uint64) {
	return d.lines.Load(), d.dropped.Load(), d.sent.Load()
}

func (d *Device) readLoop(port io.ReadWriteCloser) {
	defer d.wg.Done()
	sc := bufio.NewScanner(port)
	for sc.Scan() {
		d.lines.Add(1)
		t, err := ParseLine(sc.Text())
		if err != nil {
			if !errors.Is(err, ErrEmptyLine) {
				d.dropped.Add(1)
				log.Printf("datasource: dropped line %q: %v", sc.Text(), err)
			}
			continue
		}
		d.In.Put(t)
	}
	err := sc.Err()
	if err != nil && !isClosed(err) {
		log.Printf("datasource: read: %v", errors.WithStack(err))
	}
	d.lost(port, err)
}

// lost forgets port if it is still the open one, so the reader ending on its
// own (device unplugged, EOF) leaves the device disconnected. Ports closed by
// Disconnect are already forgotten.
func (d *Device) lost(port io.ReadWriteCloser, err error) {
	d.mu.Lock()
	if d.port != port {
		d.mu.Unlock()
		return
	}
	name := d.name
	d.cancel()
	d.port, d.cancel = nil, nil
	d.mu.Unlock()

	port.Close()
	if err == nil {
		err = io.EOF
	}
	log.Printf("datasource: lost %s: %v", name, err)
}

func (d *Device) writeLoop(ctx context.Context, port io.Writer) {
	defer d.wg.Done()
	t := time.NewTicker(writePoll)
	defer t.Stop()
	for {
		for {
			cmd, ok := d.Out.Get()
			if !ok {
				break
			}
			if _, err := io.WriteString(port, cmd+d.EOL); err != nil {
				log.Printf("datasource: write %q: %v", cmd, errors.WithStack(err))
				continue
			}
			d.sent.Add(1)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// isClosed matches the errors a read returns once the port is closed under it.
func isClosed(err error) bool {
	var pe *serial.PortError
	if errors.As(err, &pe) && pe.Code() == serial.PortClosed {
		return true
	}
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.EOF)
}
