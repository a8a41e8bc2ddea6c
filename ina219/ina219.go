// Package ina219 reads bus voltage, current and power from an INA219
// high-side current monitor via I²C.
//
// The device is calibrated once in New. Sense then returns the latest
// conversion. When the shunt voltage exceeds the programmed range the
// chip flags a math overflow; Sense reports it as ErrOutOfRange and leaves
// Current and Power at zero.
//
// Datasheet: https://www.ti.com/lit/ds/symlink/ina219.pdf
package ina219

import (
	"encoding/binary"
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/mmr"
	"periph.io/x/conn/v3/physic"
)

// Registers.
const (
	regConfiguration = 0x00
	regShuntVoltage  = 0x01
	regBusVoltage    = 0x02
	regPower         = 0x03
	regCurrent       = 0x04
	regCalibration   = 0x05
)

// configuration is 32V bus range, PGA /8 (±320mV), 12-bit bus and shunt
// ADC, shunt and bus continuous.
const configuration = 0x399F

// powerDown is the configuration with the operating mode bits cleared.
const powerDown = configuration &^ 0x0007

const (
	busOverflow    = 0x0001
	shuntVoltLSB   = 10 * physic.MicroVolt
	busVoltLSB     = 4 * physic.MilliVolt
	calibrationMax = 0xFFFE
)

// ErrOutOfRange is returned by Sense when the current or power
// calculation overflowed because the shunt voltage left the measurable range.
var ErrOutOfRange = errors.New("ina219: current out of range")

// Opts holds the configuration options.
type Opts struct {
	Address       uint16
	SenseResistor physic.ElectricResistance
	MaxCurrent    physic.ElectricCurrent
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Address:       0x40,
	SenseResistor: 100 * physic.MilliOhm,
	MaxCurrent:    3200 * physic.MilliAmpere,
}

// PowerMonitor is one reading of the sensor.
type PowerMonitor struct {
	Shunt   physic.ElectricPotential
	Voltage physic.ElectricPotential
	Current physic.ElectricCurrent
	Power   physic.Power
}

// Dev is a handle to an INA219 sensor.
type Dev struct {
	m          mmr.Dev8
	addr       uint16
	currentLSB physic.ElectricCurrent
	powerLSB   physic.Power
}

// New configures and calibrates an INA219 on the bus.
//
// opts can be nil to use DefaultOpts.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.SenseResistor <= 0 {
		return nil, errors.New("ina219: sense resistor must be positive")
	}
	if opts.MaxCurrent <= 0 {
		return nil, errors.New("ina219: max current must be positive")
	}

	currentLSB := opts.MaxCurrent / 32768
	if currentLSB == 0 {
		return nil, errors.New("ina219: max current too small")
	}
	// Calibration = 0.04096 / (CurrentLSB[A] * Rshunt[Ω]), both in nano units.
	cal := 4.096e16 / (float64(currentLSB) * float64(opts.SenseResistor))
	if cal < 1 || cal > calibrationMax {
		return nil, fmt.Errorf("ina219: calibration %.0f out of range, adjust MaxCurrent", cal)
	}

	d := &Dev{
		m: mmr.Dev8{
			Conn:  &i2c.Dev{Bus: bus, Addr: opts.Address},
			Order: binary.BigEndian,
		},
		addr:       opts.Address,
		currentLSB: currentLSB,
		powerLSB:   physic.Power(20 * currentLSB),
	}

	if err := d.m.WriteUint16(regConfiguration, configuration); err != nil {
		return nil, fmt.Errorf("ina219: failed to write configuration: %w", err)
	}
	if err := d.m.WriteUint16(regCalibration, uint16(cal)); err != nil {
		return nil, fmt.Errorf("ina219: failed to write calibration: %w", err)
	}
	return d, nil
}

// Sense reads the shunt and bus voltage, then current and power.
//
// On overflow it returns the voltages it read together with ErrOutOfRange.
func (d *Dev) Sense() (PowerMonitor, error) {
	var pm PowerMonitor

	shunt, err := d.m.ReadUint16(regShuntVoltage)
	if err != nil {
		return pm, fmt.Errorf("ina219: failed to read shunt voltage: %w", err)
	}
	pm.Shunt = physic.ElectricPotential(int16(shunt)) * shuntVoltLSB

	bus, err := d.m.ReadUint16(regBusVoltage)
	if err != nil {
		return pm, fmt.Errorf("ina219: failed to read bus voltage: %w", err)
	}
	pm.Voltage = physic.ElectricPotential(bus>>3) * busVoltLSB
	if bus&busOverflow != 0 {
		return pm, ErrOutOfRange
	}

	current, err := d.m.ReadUint16(regCurrent)
	if err != nil {
		return pm, fmt.Errorf("ina219: failed to read current: %w", err)
	}
	pm.Current = physic.ElectricCurrent(int16(current)) * d.currentLSB

	power, err := d.m.ReadUint16(regPower)
	if err != nil {
		return pm, fmt.Errorf("ina219: failed to read power: %w", err)
	}
	pm.Power = physic.Power(power) * d.powerLSB

	return pm, nil
}

// Halt puts the sensor in power-down mode.
func (d *Dev) Halt() error {
	return d.m.WriteUint16(regConfiguration, powerDown)
}

func (d *Dev) String() string {
	return fmt.Sprintf("ina219{0x%02x}", d.addr)
}
