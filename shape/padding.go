package shape

import (
	"fmt"
	"strings"
)

// Padding is the convolution border mode shared by every stage of a network.
type Padding int

const (
	// Same zero-pads 3x3 convolutions so spatial size is preserved.
	Same Padding = iota
	// Valid applies no padding; every 3x3 convolution removes one pixel per side.
	Valid
)

// ParsePadding parses "same" or "valid" (case-insensitive).
func ParsePadding(s string) (Padding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "same":
		return Same, nil
	case "valid":
		return Valid, nil
	default:
		return Same, Configf("padding must be %q or %q, got %q", "same", "valid", s)
	}
}

func (p Padding) String() string {
	switch p {
	case Same:
		return "same"
	case Valid:
		return "valid"
	default:
		return fmt.Sprintf("Padding(%d)", int(p))
	}
}

// IsValid reports whether p is one of the known modes.
func (p Padding) IsValid() bool {
	return p == Same || p == Valid
}

// ConvPad returns the zero-padding per side for a 3x3 convolution.
func (p Padding) ConvPad() int64 {
	if p == Same {
		return (KernelSize - 1) / 2
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (p Padding) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, Configf("unknown padding mode %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Padding) UnmarshalText(text []byte) error {
	v, err := ParsePadding(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Set implements pflag.Value so a Padding can be bound to a command flag.
func (p *Padding) Set(s string) error {
	return p.UnmarshalText([]byte(s))
}

// Type implements pflag.Value.
func (p *Padding) Type() string { return "padding" }
