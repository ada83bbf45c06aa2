package toolchain

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

var (
	commonCCompilers   = []string{"gcc", "clang", "icx", "icc", "tcc"}
	commonCxxCompilers = []string{"g++", "clang++", "icpx", "icx", "icpc", "icc"}
)

// findCompiler attempts to find a suitable C or C++ compiler on the system
func findCompiler(needCxx bool) string {
	cc := os.Getenv("CC")
	cxx := os.Getenv("CXX")

	if needCxx && cxx != "" {
		return cxx
	}
	if !needCxx && cc != "" {
		return cc
	}

	if cxx != "" {
		return cxx
	}
	if cc != "" {
		return cc
	}

	var compilersToTry []string
	if needCxx {
		compilersToTry = commonCxxCompilers
	} else {
		compilersToTry = commonCCompilers
	}

	for _, compiler := range compilersToTry {
		path, err := exec.LookPath(compiler)
		if err == nil {
			return path
		}
	}

	return ""
}

// Probe is the resolved compiler capability: driver paths, identity and
// version, plus flag-acceptance probing. Generators treat it as read-only.
type Probe struct {
	CC, CXX, LD string
	Name        string // "gcc" or "clang"
	Version     string
}

// Detect resolves the system toolchain. A partially resolved probe (no
// compiler found) is still returned; rule generation proceeds and the
// emitted commands fail at build time, which is the executor's concern.
func Detect() *Probe {
	cc := findCompiler(false)
	cxx := findCompiler(true)
	p := &Probe{CC: cc, CXX: cxx, LD: cxx}
	p.Name, p.Version = identify(cc)
	return p
}

func identify(cc string) (name, version string) {
	if cc == "" {
		return "cc", "unknown"
	}
	name = filepath.Base(cc)
	if out, err := exec.Command(cc, "--version").Output(); err == nil {
		first := strings.ToLower(strings.SplitN(string(out), "\n", 2)[0])
		if strings.Contains(first, "clang") {
			name = "clang"
		} else if strings.Contains(first, "gcc") || strings.Contains(first, "g++") {
			name = "gcc"
		}
	}
	version = "unknown"
	if out, err := exec.Command(cc, "-dumpversion").Output(); err == nil {
		version = strings.TrimSpace(string(out))
	}
	return name, version
}

func (p *Probe) Compiler() string {
	return p.CC
}

func (p *Probe) CompilerVersion() string {
	return p.Version
}

// FilterFlags returns the subset of flags the compiler accepts, in input
// order. Each candidate is probed by compiling an empty unit; probes run
// concurrently. A probe that cannot run drops its flag, so a broken or
// missing compiler degrades to a shorter flag list rather than an error.
func (p *Probe) FilterFlags(flags []string, lang string) []string {
	if len(flags) == 0 {
		return nil
	}
	keep := make([]bool, len(flags))

	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for i, flag := range flags {
		eg.Go(func() error {
			keep[i] = p.accepts(flag, lang)
			return nil
		})
	}
	_ = eg.Wait() // probe goroutines never return errors

	filtered := make([]string, 0, len(flags))
	for i, flag := range flags {
		if keep[i] {
			filtered = append(filtered, flag)
		}
	}
	return filtered
}

func (p *Probe) accepts(flag, lang string) bool {
	cc := p.CC
	if lang == "" {
		lang = "c++"
	}
	if lang == "c++" {
		cc = p.CXX
	}
	if cc == "" {
		return false
	}

	// clang exits zero for unknown warning options unless they are
	// escalated, hence -Werror; the stderr check catches drivers that only
	// warn about unrecognized options.
	var stderr bytes.Buffer
	cmd := exec.Command(cc, "-Werror", flag, "-x", lang, "-c", "-o", os.DevNull, os.DevNull)
	cmd.Stderr = &stderr
	if cmd.Run() != nil {
		return false
	}
	return !strings.Contains(stderr.String(), flag)
}
