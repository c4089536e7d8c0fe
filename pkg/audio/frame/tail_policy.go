package frame

import (
	"encoding"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// TailPolicy defines what happens to the trailing samples that do not fill
// a whole frame.
type TailPolicy int

const (
	TailPolicyDrop = TailPolicy(iota)
	TailPolicyPad
)

var (
	_ pflag.Value              = (*TailPolicy)(nil)
	_ encoding.TextUnmarshaler = (*TailPolicy)(nil)
)

func (p TailPolicy) String() string {
	switch p {
	case TailPolicyDrop:
		return "drop"
	case TailPolicyPad:
		return "pad"
	default:
		return fmt.Sprintf("unknown_tail_policy_%d", int(p))
	}
}

func (p *TailPolicy) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop":
		*p = TailPolicyDrop
	case "pad":
		*p = TailPolicyPad
	default:
		return fmt.Errorf("unknown tail policy '%s', expected 'drop' or 'pad'", s)
	}
	return nil
}

func (*TailPolicy) Type() string {
	return "tail-policy"
}

func (p *TailPolicy) UnmarshalText(b []byte) error {
	return p.Set(string(b))
}
