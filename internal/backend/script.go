package backend

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/forge-build/forge/internal/msg"
)

// DepsGCC tags a depfile as using the gcc -MMD format.
const DepsGCC = "gcc"

// Rule is a named command template declared once per pass and instantiated by
// build statements that reference it by name.
type Rule struct {
	Name           string
	Command        string
	Description    string
	Depfile        string
	Deps           string // depfile format tag, e.g. DepsGCC
	Pool           string
	Generator      bool
	Restat         bool
	Rspfile        string
	RspfileContent string
}

var (
	ErrDuplicateRule = errors.New("duplicate rule name")
	ErrDuplicatePool = errors.New("duplicate pool name")
)

// Script is the append-only ledger of one generation pass: an ordered text
// buffer plus the sets of declared rule and pool names. It is a plain value
// owned by the Backend, so concurrent passes never share state.
type Script struct {
	buf   strings.Builder
	rules map[string]struct{}
	names []string
	pools map[string]struct{}
}

func NewScript() *Script {
	return &Script{
		rules: make(map[string]struct{}),
		pools: make(map[string]struct{}),
	}
}

// Raw appends preformatted script text, terminating it with a newline if the
// caller did not.
func (s *Script) Raw(text string) {
	s.buf.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		s.buf.WriteByte('\n')
	}
}

// Variable declares a script-level variable. The executor requires it to
// appear before the first rule that references it.
func (s *Script) Variable(name, value string) {
	writeln(&s.buf, name, " = ", value)
}

// Pool declares a named concurrency pool with the given depth.
func (s *Script) Pool(name string, depth int) error {
	if depth < 1 {
		return fmt.Errorf("pool %s: depth must be at least 1, got %d", name, depth)
	}
	if _, ok := s.pools[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePool, name)
	}
	s.pools[name] = struct{}{}
	writeln(&s.buf, "pool ", name)
	writeln(&s.buf, "  depth = ", strconv.Itoa(depth))
	writeln(&s.buf)
	return nil
}

// Rule declares a rule. Redeclaring a name, or referencing a pool that has
// not been declared yet, is a defect in the calling generator.
func (s *Script) Rule(r Rule) error {
	if _, ok := s.rules[r.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, r.Name)
	}
	if r.Pool != "" {
		if _, ok := s.pools[r.Pool]; !ok {
			return fmt.Errorf("rule %s references undeclared pool %s", r.Name, r.Pool)
		}
	}
	s.rules[r.Name] = struct{}{}
	s.names = append(s.names, r.Name)

	writeln(&s.buf, "rule ", r.Name)
	writeln(&s.buf, "  command = ", r.Command)
	if r.Description != "" {
		writeln(&s.buf, "  description = ", msg.Dim(r.Description))
	}
	if r.Depfile != "" {
		writeln(&s.buf, "  depfile = ", r.Depfile)
	}
	if r.Generator {
		writeln(&s.buf, "  generator = 1")
	}
	if r.Pool != "" {
		writeln(&s.buf, "  pool = ", r.Pool)
	}
	if r.Restat {
		writeln(&s.buf, "  restat = 1")
	}
	if r.Rspfile != "" {
		writeln(&s.buf, "  rspfile = ", r.Rspfile)
	}
	if r.RspfileContent != "" {
		writeln(&s.buf, "  rspfile_content = ", r.RspfileContent)
	}
	if r.Deps != "" {
		writeln(&s.buf, "  deps = ", r.Deps)
	}
	writeln(&s.buf) // an empty line to improve readability
	return nil
}

// RuleNames returns every declared rule name in declaration order. The
// per-target statement emitter uses it to validate references.
func (s *Script) RuleNames() []string {
	return slices.Clone(s.names)
}

func (s *Script) HasRule(name string) bool {
	_, ok := s.rules[name]
	return ok
}

func (s *Script) HasPool(name string) bool {
	_, ok := s.pools[name]
	return ok
}

func (s *Script) Text() string {
	return s.buf.String()
}

func (s *Script) WriteFile(path string) error {
	return os.WriteFile(path, []byte(s.Text()), 0644)
}

func writeln(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
	sb.WriteByte('\n')
}
