package gpio

import "fmt"

// Open returns the Source for the named backend.
// chip is only used by the gpiocdev backend.
func Open(backend, chip string) (Source, error) {
	switch backend {
	case "", BackendGPIOCDev:
		s, err := NewChipSource(chip)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPeriph:
		s, err := NewPeriphSource()
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("gpio: unknown backend %q", backend)
	}
}
