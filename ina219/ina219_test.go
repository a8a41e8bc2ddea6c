package ina219

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// setup is the I²C traffic of New with DefaultOpts: configuration 0x399F
// and calibration 4194 (0x1062).
func setup(addr uint16) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{regConfiguration, 0x39, 0x9F}},
		{Addr: addr, W: []byte{regCalibration, 0x10, 0x62}},
	}
}

func TestNew(t *testing.T) {
	bus := &i2ctest.Playback{Ops: setup(0x40), DontPanic: true}

	d, err := New(bus, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got, want := d.currentLSB, physic.ElectricCurrent(97656); got != want {
		t.Errorf("currentLSB = %d, want %d", got, want)
	}
	if got, want := d.String(), "ina219{0x40}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unconsumed I²C operations: %v", err)
	}
}

func TestNewOptsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Opts
	}{
		{"zero resistor", Opts{Address: 0x40, MaxCurrent: physic.Ampere}},
		{"zero current", Opts{Address: 0x40, SenseResistor: physic.Ohm}},
		{"tiny current", Opts{Address: 0x40, SenseResistor: physic.Ohm, MaxCurrent: 1000 * physic.NanoAmpere}},
		{"calibration overflow", Opts{Address: 0x45, SenseResistor: 5 * physic.MilliOhm, MaxCurrent: 3200 * physic.MilliAmpere}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &i2ctest.Playback{DontPanic: true}
			if _, err := New(bus, &tt.opts); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestSense(t *testing.T) {
	ops := append(setup(0x40),
		i2ctest.IO{Addr: 0x40, W: []byte{regShuntVoltage}, R: []byte{0x0F, 0xA0}},
		i2ctest.IO{Addr: 0x40, W: []byte{regBusVoltage}, R: []byte{0x28, 0x02}},
		i2ctest.IO{Addr: 0x40, W: []byte{regCurrent}, R: []byte{0x03, 0xE8}},
		i2ctest.IO{Addr: 0x40, W: []byte{regPower}, R: []byte{0x00, 0xC8}},
	)
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}

	d, err := New(bus, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	pm, err := d.Sense()
	if err != nil {
		t.Fatalf("Sense() error = %v", err)
	}

	want := PowerMonitor{
		Shunt:   40 * physic.MilliVolt,
		Voltage: 5120 * physic.MilliVolt,
		Current: 1000 * 97656 * physic.NanoAmpere,
		Power:   200 * 20 * 97656 * physic.NanoWatt,
	}
	if pm != want {
		t.Errorf("Sense() = %+v, want %+v", pm, want)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unconsumed I²C operations: %v", err)
	}
}

func TestSenseNegativeCurrent(t *testing.T) {
	ops := append(setup(0x40),
		i2ctest.IO{Addr: 0x40, W: []byte{regShuntVoltage}, R: []byte{0xF0, 0x60}},
		i2ctest.IO{Addr: 0x40, W: []byte{regBusVoltage}, R: []byte{0x20, 0x02}},
		i2ctest.IO{Addr: 0x40, W: []byte{regCurrent}, R: []byte{0xFC, 0x18}},
		i2ctest.IO{Addr: 0x40, W: []byte{regPower}, R: []byte{0x00, 0x64}},
	)
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}

	d, err := New(bus, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	pm, err := d.Sense()
	if err != nil {
		t.Fatalf("Sense() error = %v", err)
	}
	if want := -40 * physic.MilliVolt; pm.Shunt != want {
		t.Errorf("Shunt = %s, want %s", pm.Shunt, want)
	}
	if want := -1000 * 97656 * physic.NanoAmpere; pm.Current != want {
		t.Errorf("Current = %s, want %s", pm.Current, want)
	}
}

func TestSenseOverflow(t *testing.T) {
	ops := append(setup(0x40),
		i2ctest.IO{Addr: 0x40, W: []byte{regShuntVoltage}, R: []byte{0x7D, 0x00}},
		i2ctest.IO{Addr: 0x40, W: []byte{regBusVoltage}, R: []byte{0x28, 0x01}},
	)
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}

	d, err := New(bus, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	pm, err := d.Sense()
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Sense() error = %v, want %v", err, ErrOutOfRange)
	}
	if pm.Voltage != 5120*physic.MilliVolt {
		t.Errorf("Voltage = %s, want 5.12V", pm.Voltage)
	}
	if pm.Current != 0 || pm.Power != 0 {
		t.Errorf("Current = %s, Power = %s, want zero on overflow", pm.Current, pm.Power)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unconsumed I²C operations: %v", err)
	}
}

func TestSenseBusError(t *testing.T) {
	bus := &i2ctest.Playback{Ops: setup(0x40), DontPanic: true}

	d, err := New(bus, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := d.Sense(); err == nil || errors.Is(err, ErrOutOfRange) {
		t.Errorf("Sense() error = %v, want a bus error", err)
	}
}

func TestHalt(t *testing.T) {
	ops := append(setup(0x40), i2ctest.IO{Addr: 0x40, W: []byte{regConfiguration, 0x39, 0x98}})
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}

	d, err := New(bus, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Halt(); err != nil {
		t.Fatalf("Halt() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unconsumed I²C operations: %v", err)
	}
}
