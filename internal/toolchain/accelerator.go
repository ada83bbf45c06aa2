package toolchain

import (
	"os/exec"

	"github.com/forge-build/forge/internal/msg"
)

// Accelerator resolves the command prefixes for compiling and linking,
// fronting the compilers with a caching or distributing wrapper (ccache,
// distcc) when one is configured and present. The linker is never wrapped.
type Accelerator struct {
	probe  *Probe
	prefix string
}

func NewAccelerator(wrapper string, probe *Probe) *Accelerator {
	a := &Accelerator{probe: probe}
	if wrapper == "" {
		return a
	}
	path, err := exec.LookPath(wrapper)
	if err != nil {
		msg.Warn("build accelerator %q not found on PATH, building without it", wrapper)
		return a
	}
	a.prefix = path
	return a
}

func (a *Accelerator) CCCommands() (cc, cxx, ld string) {
	cc, cxx, ld = a.probe.CC, a.probe.CXX, a.probe.LD
	if a.prefix != "" {
		cc = a.prefix + " " + cc
		cxx = a.prefix + " " + cxx
	}
	return cc, cxx, ld
}
