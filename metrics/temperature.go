package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// TemperatureSource returns a temperature in °C.
type TemperatureSource interface {
	Temperature(ctx context.Context) (float64, error)
}

// TemperatureFunc adapts a function to TemperatureSource.
type TemperatureFunc func(ctx context.Context) (float64, error)

// Temperature calls f(ctx).
func (f TemperatureFunc) Temperature(ctx context.Context) (float64, error) {
	return f(ctx)
}

// ThermalSensor reads the SoC temperature. It is created once by the
// program and handed to the Collector.
type ThermalSensor struct {
	key      string // gopsutil sensor key prefix
	zonePath string // sysfs fallback, millidegrees
}

// NewThermalSensor returns a sensor for the Raspberry Pi's cpu_thermal zone.
func NewThermalSensor() *ThermalSensor {
	return &ThermalSensor{
		key:      "cpu_thermal",
		zonePath: "/sys/class/thermal/thermal_zone0/temp",
	}
}

// Temperature returns the SoC temperature rounded to 0.1°C.
func (t *ThermalSensor) Temperature(ctx context.Context) (float64, error) {
	// gopsutil returns partial results together with warnings.
	temps, _ := host.SensorsTemperaturesWithContext(ctx)
	for _, ts := range temps {
		if strings.HasPrefix(ts.SensorKey, t.key) {
			return Round(ts.Temperature, 1), nil
		}
	}
	return t.readZone()
}

func (t *ThermalSensor) readZone() (float64, error) {
	b, err := os.ReadFile(t.zonePath)
	if err != nil {
		return 0, fmt.Errorf("metrics: no %s sensor: %w", t.key, err)
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("metrics: bad thermal zone value %q: %w", b, err)
	}
	return Round(float64(milli)/1000, 1), nil
}

var (
	gpuTempPattern = regexp.MustCompile(`[0-9]+\.[0-9]+`)
	errNoGPUTemp   = errors.New("metrics: no temperature in vcgencmd output")
)

// VCGenCmd reads the GPU temperature with the VideoCore `vcgencmd` tool.
type VCGenCmd struct {
	// Path to the binary, looked up in $PATH when empty.
	Path string
}

// Temperature runs `vcgencmd measure_temp` and parses its output.
func (v VCGenCmd) Temperature(ctx context.Context) (float64, error) {
	name := v.Path
	if name == "" {
		name = "vcgencmd"
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return 0, err
	}
	out, err := exec.CommandContext(ctx, bin, "measure_temp").Output()
	if err != nil {
		return 0, fmt.Errorf("metrics: vcgencmd: %w", err)
	}
	return ParseGPUTemp(string(out))
}

// ParseGPUTemp extracts the first decimal number from `vcgencmd
// measure_temp` output such as "temp=46.8'C".
func ParseGPUTemp(out string) (float64, error) {
	m := gpuTempPattern.FindString(out)
	if m == "" {
		return 0, fmt.Errorf("%w: %q", errNoGPUTemp, strings.TrimSpace(out))
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, err
	}
	return Round(v, 1), nil
}
