package cmd

import (
	"fmt"
	"strings"
)

// enumFlag is a pflag.Value restricted to a fixed set of strings.
type enumFlag struct {
	value   string
	allowed []string
}

func newEnumFlag(defaultVal string, allowed ...string) *enumFlag {
	return &enumFlag{value: defaultVal, allowed: allowed}
}

func (e *enumFlag) String() string { return e.value }
func (e *enumFlag) Type() string   { return "enum" }
func (e *enumFlag) Value() string  { return e.value }

func (e *enumFlag) Set(v string) error {
	for _, a := range e.allowed {
		if v == a {
			e.value = v
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.allowed, ", "))
}

func (e *enumFlag) helpString() string {
	return "[" + strings.Join(e.allowed, ", ") + "]"
}
