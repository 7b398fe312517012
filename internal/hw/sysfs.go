package hw

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/pentactl/internal/errors"
)

const (
	// 40 µs period = 25 kHz, per the fan's PWM specification
	pwmPeriodNs = 40000

	defaultPWMChipPath    = "/sys/class/pwm/pwmchip0"
	defaultGPIOPath       = "/sys/class/gpio/gpio11"
	defaultThermalZone    = "/sys/class/thermal/thermal_zone0/temp"
	milliDegreesPerDegree = 1000.0
)

// sysfsFan drives a PWM channel through the kernel sysfs interface.
type sysfsFan struct {
	channelPath string
}

// NewSysfsFan exports and enables channel 0 of the given PWM chip
// (defaulting to pwmchip0) and configures the 25 kHz period. Failure
// here is fatal to the daemon: there is nothing useful to do without an
// actuator.
func NewSysfsFan(chipPath string) (Fan, error) {
	errFactory := errors.New()

	if chipPath == "" {
		chipPath = defaultPWMChipPath
	}
	channelPath := filepath.Join(chipPath, "pwm0")

	if _, err := os.Stat(channelPath); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(chipPath, "export"), []byte("0"), 0o200); err != nil {
			return nil, errFactory.Wrap(ErrPWMInitFailed, err)
		}
	}

	f := &sysfsFan{channelPath: channelPath}

	if err := f.writeAttr("period", strconv.Itoa(pwmPeriodNs)); err != nil {
		return nil, errFactory.Wrap(ErrPWMInitFailed, err)
	}
	if err := f.writeAttr("enable", "1"); err != nil {
		return nil, errFactory.Wrap(ErrPWMInitFailed, err)
	}

	return f, nil
}

func (f *sysfsFan) SetDutyCycle(offRatio float64) error {
	errFactory := errors.New()

	if offRatio < 0 || offRatio > 0.999 {
		return errFactory.WithData(ErrInvalidDutyCycle, fmt.Sprintf("%.3f", offRatio))
	}

	dutyNs := int(offRatio * pwmPeriodNs)
	if err := f.writeAttr("duty_cycle", strconv.Itoa(dutyNs)); err != nil {
		return errFactory.Wrap(ErrPWMWriteFailed, err)
	}

	return nil
}

func (f *sysfsFan) Close() error {
	return f.writeAttr("enable", "0")
}

func (f *sysfsFan) writeAttr(name, value string) error {
	return os.WriteFile(filepath.Join(f.channelPath, name), []byte(value), 0o200)
}

// sysfsButton reads a GPIO value file.
type sysfsButton struct {
	valuePath string
}

// NewSysfsButton opens the top-board button line, pin 11 on the Penta
// HAT header (gpio11 unless overridden).
func NewSysfsButton(gpioPath string) (Button, error) {
	errFactory := errors.New()

	if gpioPath == "" {
		gpioPath = defaultGPIOPath
	}
	valuePath := filepath.Join(gpioPath, "value")

	if _, err := os.ReadFile(valuePath); err != nil {
		return nil, errFactory.Wrap(ErrGPIOInitFailed, err)
	}

	return &sysfsButton{valuePath: valuePath}, nil
}

func (b *sysfsButton) Read() (bool, error) {
	errFactory := errors.New()

	raw, err := os.ReadFile(b.valuePath)
	if err != nil {
		return false, errFactory.Wrap(ErrGPIOReadFailed, err)
	}

	return strings.TrimSpace(string(raw)) == "1", nil
}

func (b *sysfsButton) Close() error {
	return nil
}

// thermalZoneSensor reads the SoC temperature from the kernel thermal
// zone file, which reports integer millidegrees Celsius.
type thermalZoneSensor struct {
	path string
}

func NewThermalZoneSensor(path string) TempSensor {
	if path == "" {
		path = defaultThermalZone
	}

	return &thermalZoneSensor{path: path}
}

func (s *thermalZoneSensor) Read() (float64, error) {
	errFactory := errors.New()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return 0, errFactory.Wrap(ErrSensorReadFailed, err)
	}

	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrSensorReadFailed, err)
	}

	return milli / milliDegreesPerDegree, nil
}
