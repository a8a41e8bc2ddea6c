package metrics

import (
	"context"
	"errors"

	"github.com/flavioheleno/epd2in7/ina219"
	"github.com/flavioheleno/epd2in7/upsplus"
	"periph.io/x/conn/v3/i2c"
)

// PowerSource samples the power management telemetry.
type PowerSource interface {
	ReadPower(ctx context.Context) Power
}

// PowerSensor is a voltage/current/power monitor such as *ina219.Dev.
type PowerSensor interface {
	Sense() (ina219.PowerMonitor, error)
}

// UPSStatus reads the UPS microcontroller, such as *upsplus.Dev.
type UPSStatus interface {
	Status() (upsplus.Status, error)
}

var errNoDevice = errors.New("metrics: device not present")

// INA219 is a PowerSensor that configures its INA219 on first use. A
// failed configuration or bus read drops the device, so the next Sense
// configures it again.
type INA219 struct {
	Bus  i2c.Bus
	Opts ina219.Opts

	dev *ina219.Dev
}

// Sense configures the sensor if needed and reads it.
func (s *INA219) Sense() (ina219.PowerMonitor, error) {
	if s.dev == nil {
		d, err := ina219.New(s.Bus, &s.Opts)
		if err != nil {
			return ina219.PowerMonitor{}, err
		}
		s.dev = d
	}
	pm, err := s.dev.Sense()
	if err != nil && !errors.Is(err, ina219.ErrOutOfRange) {
		s.dev = nil
	}
	return pm, err
}

// Halt powers the sensor down. It is a no-op if it was never configured.
func (s *INA219) Halt() error {
	if s.dev == nil {
		return nil
	}
	err := s.dev.Halt()
	s.dev = nil
	return err
}

// UPS is the PowerSource of a UPS HAT with two INA219 monitors and a
// status microcontroller. A nil device is reported unavailable.
type UPS struct {
	Supply  PowerSensor // Pi supply rail
	Battery PowerSensor
	MCU     UPSStatus
}

// ReadPower reads the three devices in order on the shared bus. The bus
// transactions are not bounded by ctx.
func (u *UPS) ReadPower(ctx context.Context) Power {
	var p Power
	if u.Supply == nil {
		p.Supply = Failed[ina219.PowerMonitor](errNoDevice)
	} else if pm, err := u.Supply.Sense(); err != nil {
		p.Supply = Failed[ina219.PowerMonitor](err)
	} else {
		p.Supply = Ok(pm)
	}

	if u.Battery == nil {
		p.Battery = Failed[ina219.PowerMonitor](errNoDevice)
	} else {
		pm, err := u.Battery.Sense()
		switch {
		case errors.Is(err, ina219.ErrOutOfRange):
			// The battery current overflows the ADC while idle; the
			// voltages are still valid.
			pm.Current = 0
			pm.Power = 0
			p.Battery = Ok(pm)
		case err != nil:
			p.Battery = Failed[ina219.PowerMonitor](err)
		default:
			p.Battery = Ok(pm)
		}
	}

	if u.MCU == nil {
		p.UPS = Failed[upsplus.Status](errNoDevice)
	} else if s, err := u.MCU.Status(); err != nil {
		p.UPS = Failed[upsplus.Status](err)
	} else {
		p.UPS = Ok(s)
	}
	return p
}

// Halt powers down the monitors that support it.
func (u *UPS) Halt() error {
	var errs []error
	for _, s := range []PowerSensor{u.Supply, u.Battery} {
		if h, ok := s.(interface{ Halt() error }); ok {
			errs = append(errs, h.Halt())
		}
	}
	return errors.Join(errs...)
}
