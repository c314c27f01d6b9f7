package homeassistant

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrUnavailable reports a sensor state of "unavailable" or "unknown".
var ErrUnavailable = errors.New("sensor unavailable")

func unavailable(s string) bool {
	return s == "unavailable" || s == "unknown"
}

func parseFloat(name, s string) (float64, error) {
	if unavailable(s) {
		return 0, fmt.Errorf("%s: %w", name, ErrUnavailable)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: invalid number %q", name, s)
	}
	return v, nil
}

func parseInt(name, s string) (int, error) {
	v, err := parseFloat(name, s)
	if err != nil {
		return 0, err
	}
	return int(math.Round(v)), nil
}

// parseIntOrZero maps an unavailable sensor to 0.
func parseIntOrZero(name, s string) (int, error) {
	if unavailable(s) {
		return 0, nil
	}
	return parseInt(name, s)
}

// parseSoC maps an unavailable sensor to NaN.
func parseSoC(name, s string) (float64, error) {
	if unavailable(s) {
		return math.NaN(), nil
	}
	return parseFloat(name, s)
}

func parseOn(s string) bool { return s == "on" }

// parser keeps the first parse error and turns later reads into no-ops.
type parser struct{ err error }

func (p *parser) float(name, s string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := parseFloat(name, s)
	p.err = err
	return v
}

func (p *parser) int(name, s string) int {
	if p.err != nil {
		return 0
	}
	v, err := parseInt(name, s)
	p.err = err
	return v
}

func (p *parser) intOrZero(name, s string) int {
	if p.err != nil {
		return 0
	}
	v, err := parseIntOrZero(name, s)
	p.err = err
	return v
}

func (p *parser) soc(name, s string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := parseSoC(name, s)
	p.err = err
	return v
}
