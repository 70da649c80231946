package domain

import "fmt"

// Quantity is a numeric value with its unit as written in the document.
type Quantity struct {
	Value float64
	Unit  string
}

// String renders the quantity as "value unit".
func (q Quantity) String() string {
	if q.Unit == "" {
		return fmt.Sprintf("%g", q.Value)
	}
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

// VoltageFactorMV returns the factor that converts a voltage in unit to mV.
func VoltageFactorMV(unit string) (float64, error) {
	switch unit {
	case "uV":
		return 1e-3, nil
	case "V":
		return 1e3, nil
	case "mV":
		return 1, nil
	case "nV":
		return 1e-6, nil
	default:
		return 0, fmt.Errorf("voltage %q: %w", unit, ErrUnknownUnit)
	}
}

// TimeFactorMS returns the factor that converts a duration in unit to ms.
func TimeFactorMS(unit string) (float64, error) {
	switch unit {
	case "us":
		return 1e-3, nil
	case "s":
		return 1e3, nil
	case "ms":
		return 1, nil
	default:
		return 0, fmt.Errorf("time %q: %w", unit, ErrUnknownUnit)
	}
}

// ToMV converts the quantity to millivolts.
func (q Quantity) ToMV() (float64, error) {
	f, err := VoltageFactorMV(q.Unit)
	if err != nil {
		return 0, err
	}
	return q.Value * f, nil
}

// ToMS converts the quantity to milliseconds.
func (q Quantity) ToMS() (float64, error) {
	f, err := TimeFactorMS(q.Unit)
	if err != nil {
		return 0, err
	}
	return q.Value * f, nil
}
