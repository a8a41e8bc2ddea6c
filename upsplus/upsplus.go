// Package upsplus reads the status registers of a UPS Plus battery HAT
// microcontroller via I²C.
//
// The MCU exposes its state as a little-endian register file. The first 32
// bytes hold the charger input voltages and the battery temperature and
// capacity.
package upsplus

import (
	"encoding/binary"
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the MCU's fixed I²C address.
const DefaultAddress = 0x17

// BlockSize is the number of bytes read from register 0.
const BlockSize = 32

// Byte offsets of the little-endian 16-bit fields in the block.
const (
	offUSBCVoltage     = 7
	offMicroUSBVoltage = 9
	offBatteryTemp     = 11
	offBatteryCapacity = 19
)

// ChargeThreshold is the charger input voltage above which the input is
// considered connected.
const ChargeThreshold = 4000 * physic.MilliVolt

var errShortBlock = errors.New("upsplus: register block too short")

// ChargeState is the power source currently charging the battery.
type ChargeState int

const (
	NotCharging ChargeState = iota
	ChargingUSBC
	ChargingMicroUSB
)

func (c ChargeState) String() string {
	switch c {
	case ChargingUSBC:
		return "Charging via USB-C"
	case ChargingMicroUSB:
		return "Charging via Micro USB"
	default:
		return "Not charging"
	}
}

// Status is the decoded register block.
type Status struct {
	USBCVoltage     physic.ElectricPotential
	MicroUSBVoltage physic.ElectricPotential
	BatteryTemp     int // °C
	BatteryCapacity int // %
	State           ChargeState
}

// Decode parses a register block read from offset 0.
func Decode(b []byte) (Status, error) {
	if len(b) < offBatteryCapacity+2 {
		return Status{}, errShortBlock
	}
	s := Status{
		USBCVoltage:     physic.ElectricPotential(binary.LittleEndian.Uint16(b[offUSBCVoltage:])) * physic.MilliVolt,
		MicroUSBVoltage: physic.ElectricPotential(binary.LittleEndian.Uint16(b[offMicroUSBVoltage:])) * physic.MilliVolt,
		BatteryTemp:     int(binary.LittleEndian.Uint16(b[offBatteryTemp:])),
		BatteryCapacity: int(binary.LittleEndian.Uint16(b[offBatteryCapacity:])),
	}
	switch {
	case s.USBCVoltage > ChargeThreshold:
		s.State = ChargingUSBC
	case s.MicroUSBVoltage > ChargeThreshold:
		s.State = ChargingMicroUSB
	default:
		s.State = NotCharging
	}
	return s, nil
}

// Dev is a handle to the UPS MCU.
type Dev struct {
	d i2c.Dev
}

// New returns a handle to the MCU at addr. Nothing is sent on the bus.
func New(bus i2c.Bus, addr uint16) *Dev {
	return &Dev{d: i2c.Dev{Bus: bus, Addr: addr}}
}

// ReadBlock reads BlockSize bytes starting at register 0.
func (d *Dev) ReadBlock() ([]byte, error) {
	b := make([]byte, BlockSize)
	if err := d.d.Tx([]byte{0x00}, b); err != nil {
		return nil, fmt.Errorf("upsplus: failed to read registers: %w", err)
	}
	return b, nil
}

// Status reads and decodes the register block.
func (d *Dev) Status() (Status, error) {
	b, err := d.ReadBlock()
	if err != nil {
		return Status{}, err
	}
	return Decode(b)
}

func (d *Dev) String() string {
	return fmt.Sprintf("upsplus{0x%02x}", d.d.Addr)
}
