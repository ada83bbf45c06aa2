package backend

import (
	"fmt"
	"strings"

	"github.com/forge-build/forge/internal/config"
	"github.com/forge-build/forge/internal/toolchain"
	"github.com/google/uuid"
)

// Toolchain is the resolved compiler capability consumed by the generators.
// *toolchain.Probe implements it; tests substitute a static stand-in.
type Toolchain interface {
	// Compiler returns the plain C compiler driver path.
	Compiler() string
	// CompilerVersion returns the driver's reported version.
	CompilerVersion() string
	// FilterFlags keeps only the flags the compiler accepts for lang
	// ("c", "c++" or "" for either).
	FilterFlags(flags []string, lang string) []string
}

// Accelerator resolves the compiler and linker command prefixes, letting a
// caching or distributing wrapper front the toolchain transparently.
type Accelerator interface {
	CCCommands() (cc, cxx, ld string)
}

// Options configure one generation pass.
type Options struct {
	Profile   string // "debug" or "release"
	SourceDir string // workspace root the script is generated for
	// Pipefail overrides the shell capability probe; nil means probe once
	// at construction.
	Pipefail *bool
}

// Backend translates the resolved configuration and toolchain probe into the
// ninja rule script consumed by the build executor. It produces rule
// definitions only; per-target build statements come from a separate emitter
// that validates its references against RuleNames.
type Backend struct {
	cfg      *config.Config
	tc       Toolchain
	accel    Accelerator
	profile  string
	srcDir   string
	buildDir string
	pipefail bool
	buildID  string
	script   *Script
}

func New(cfg *config.Config, tc Toolchain, accel Accelerator, opts Options) *Backend {
	profile := opts.Profile
	if profile == "" {
		profile = "release"
	}
	pipefail := false
	if opts.Pipefail != nil {
		pipefail = *opts.Pipefail
	} else {
		pipefail = toolchain.SupportsPipefail()
	}
	srcDir := opts.SourceDir
	if srcDir == "" {
		srcDir = "."
	}
	return &Backend{
		cfg:      cfg,
		tc:       tc,
		accel:    accel,
		profile:  profile,
		srcDir:   srcDir,
		buildDir: cfg.Global.BuildDir,
		pipefail: pipefail,
		buildID:  uuid.NewString(),
		script:   NewScript(),
	}
}

// Generate runs every rule generator in the fixed order the executor relies
// on (pools and variables precede the rules that reference them). On error
// no script text is exposed; nothing is persisted.
func (b *Backend) Generate() (*Script, error) {
	steps := []func() error{
		b.fileHeader,
		b.commonRules,
		b.ccRules,
		b.protoRules,
		b.resourceRules,
		b.javaScalaRules,
		b.thriftRules,
		b.pythonRules,
		b.goRules,
		b.shellRules,
		b.lexYaccRules,
		b.packageRules,
		b.versionRules,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return b.script, nil
}

func (b *Backend) fileHeader() error {
	b.script.Raw("# build.ninja generated by forge\nninja_required_version = 1.7\nbuilddir = " + b.buildDir + "\n")
	// No more than one heavy target at a time.
	return b.script.Pool("heavy_pool", 1)
}

func (b *Backend) commonRules() error {
	return b.script.Rule(Rule{
		Name:        "copy",
		Command:     "cp -f ${in} ${out}",
		Description: "COPY ${in} ${out}",
	})
}

// builtinCommand assembles an invocation of the builtin tool dispatcher:
// search-path setup, interpreter, dispatcher module, subcommand, arguments.
// Without an explicit suffix the dispatcher receives "${out} ${in}".
func (b *Backend) builtinCommand(tool string, suffix string) string {
	cmd := []string{
		fmt.Sprintf("PYTHONPATH=%s:$$PYTHONPATH", b.cfg.Tool.Dir),
		b.cfg.Tool.Interpreter,
		"-m", b.cfg.Tool.Module,
		tool,
	}
	if suffix != "" {
		cmd = append(cmd, suffix)
	} else {
		cmd = append(cmd, "${out} ${in}")
	}
	return strings.Join(cmd, " ")
}
