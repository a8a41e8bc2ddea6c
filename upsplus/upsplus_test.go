package upsplus

import (
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// block builds a register block with the charger voltages, temperature and
// capacity stored little-endian at their offsets.
func block(usbc, micro, temp, capacity uint16) []byte {
	b := make([]byte, BlockSize)
	b[7], b[8] = byte(usbc), byte(usbc>>8)
	b[9], b[10] = byte(micro), byte(micro>>8)
	b[11], b[12] = byte(temp), byte(temp>>8)
	b[19], b[20] = byte(capacity), byte(capacity>>8)
	return b
}

func TestDecodeChargeState(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want ChargeState
	}{
		{
			"usb-c",
			[]byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xD0, 0x14, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
			ChargingUSBC,
		},
		{
			"micro usb",
			[]byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xD0, 0x14, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
			ChargingMicroUSB,
		},
		{
			"not charging",
			[]byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
			NotCharging,
		},
		{"usb-c wins over micro usb", block(5100, 5000, 0, 0), ChargingUSBC},
		{"exactly at threshold", block(4000, 4000, 0, 0), NotCharging},
		{"just above threshold", block(4001, 0, 0, 0), ChargingUSBC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode(tt.b)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if s.State != tt.want {
				t.Errorf("State = %v, want %v", s.State, tt.want)
			}
		})
	}
}

func TestDecodeBattery(t *testing.T) {
	b := []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1F, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x57, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	s, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if s.BatteryTemp != 31 {
		t.Errorf("BatteryTemp = %d, want 31", s.BatteryTemp)
	}
	if s.BatteryCapacity != 87 {
		t.Errorf("BatteryCapacity = %d, want 87", s.BatteryCapacity)
	}

	// High bytes are significant.
	s, err = Decode(block(0x1388, 0, 0x0102, 0x0100))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if s.USBCVoltage != 5*physic.Volt {
		t.Errorf("USBCVoltage = %s, want 5V", s.USBCVoltage)
	}
	if s.BatteryTemp != 258 || s.BatteryCapacity != 256 {
		t.Errorf("BatteryTemp = %d, BatteryCapacity = %d, want 258, 256", s.BatteryTemp, s.BatteryCapacity)
	}
}

func TestDecodeShortBlock(t *testing.T) {
	if _, err := Decode(make([]byte, 20)); err == nil {
		t.Error("Decode should fail on a 20-byte block")
	}
	if _, err := Decode(make([]byte, 21)); err != nil {
		t.Errorf("Decode(21 bytes) error = %v", err)
	}
}

func TestChargeStateString(t *testing.T) {
	tests := []struct {
		s    ChargeState
		want string
	}{
		{NotCharging, "Not charging"},
		{ChargingUSBC, "Charging via USB-C"},
		{ChargingMicroUSB, "Charging via Micro USB"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDevStatus(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddress, W: []byte{0x00}, R: block(5000, 0, 30, 95)},
		},
		DontPanic: true,
	}
	d := New(bus, DefaultAddress)

	s, err := d.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	want := Status{
		USBCVoltage:     5 * physic.Volt,
		BatteryTemp:     30,
		BatteryCapacity: 95,
		State:           ChargingUSBC,
	}
	if s != want {
		t.Errorf("Status() = %+v, want %+v", s, want)
	}
	if got := d.String(); got != "upsplus{0x17}" {
		t.Errorf("String() = %q, want %q", got, "upsplus{0x17}")
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unconsumed I²C operations: %v", err)
	}
}

func TestDevStatusBusError(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	if _, err := New(bus, DefaultAddress).Status(); err == nil {
		t.Error("Status() should fail when the bus returns an error")
	}
}
