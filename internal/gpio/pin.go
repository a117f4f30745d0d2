package gpio

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const DefaultSysfsRoot = "/sys/class/gpio"

// Pin is an active-low digital input. Low reports whether the button is
// pressed.
type Pin interface {
	Low() (bool, error)
}

// Released is a pin that is never pressed. It stands in for hardware when
// only injected presses are wanted.
type Released struct{}

func (Released) Low() (bool, error) { return false, nil }

// SysfsPin reads a line through the legacy /sys/class/gpio interface. The
// pull-up has to be configured by the board (device tree or config.txt);
// sysfs cannot set it.
type SysfsPin struct {
	fs       afero.Fs
	root     string
	number   int
	exported bool
}

func OpenSysfsPin(fs afero.Fs, root string, number int) (*SysfsPin, error) {
	if number < 0 {
		return nil, fmt.Errorf("invalid gpio number: %d", number)
	}
	if root == "" {
		root = DefaultSysfsRoot
	}
	p := &SysfsPin{fs: fs, root: root, number: number}

	exists, err := afero.DirExists(fs, p.dir())
	if err != nil {
		return nil, fmt.Errorf("stat gpio%d: %w", number, err)
	}
	if !exists {
		if err := p.write(path.Join(root, "export"), strconv.Itoa(number)); err != nil {
			return nil, fmt.Errorf("export gpio%d: %w", number, err)
		}
		p.exported = true
	}
	if err := p.write(path.Join(p.dir(), "direction"), "in"); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set gpio%d direction: %w", number, err)
	}
	return p, nil
}

func (p *SysfsPin) Number() int {
	return p.number
}

func (p *SysfsPin) Low() (bool, error) {
	data, err := afero.ReadFile(p.fs, path.Join(p.dir(), "value"))
	if err != nil {
		return false, fmt.Errorf("read gpio%d: %w", p.number, err)
	}
	switch strings.TrimSpace(string(data)) {
	case "0":
		return true, nil
	case "1":
		return false, nil
	default:
		return false, fmt.Errorf("gpio%d: unexpected value %q", p.number, strings.TrimSpace(string(data)))
	}
}

// Close unexports the line if this process exported it.
func (p *SysfsPin) Close() error {
	if !p.exported {
		return nil
	}
	p.exported = false
	err := p.write(path.Join(p.root, "unexport"), strconv.Itoa(p.number))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (p *SysfsPin) dir() string {
	return path.Join(p.root, "gpio"+strconv.Itoa(p.number))
}

func (p *SysfsPin) write(name, value string) error {
	f, err := p.fs.OpenFile(name, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
