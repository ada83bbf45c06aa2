package backend

import (
	"strings"
	"testing"

	"github.com/forge-build/forge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticToolchain accepts every flag, so generated scripts are deterministic
// regardless of what compilers the test host has.
type staticToolchain struct{}

func (staticToolchain) Compiler() string        { return "gcc" }
func (staticToolchain) CompilerVersion() string { return "13.2.0" }
func (staticToolchain) FilterFlags(flags []string, lang string) []string {
	return flags
}

type staticAccel struct{}

func (staticAccel) CCCommands() (string, string, string) {
	return "gcc", "g++", "g++"
}

func ptr[T any](v T) *T { return &v }

func generate(t *testing.T, cfg *config.Config, opts Options) *Script {
	t.Helper()
	if opts.SourceDir == "" {
		opts.SourceDir = t.TempDir()
	}
	if opts.Pipefail == nil {
		opts.Pipefail = ptr(true)
	}
	b := New(cfg, staticToolchain{}, staticAccel{}, opts)
	script, err := b.Generate()
	require.NoError(t, err)
	return script
}

func TestGenerateReleaseRoundTrip(t *testing.T) {
	cfg := config.Default()
	script := generate(t, cfg, Options{Profile: "release"})
	text := script.Text()

	// exactly one heavy pool, depth one
	assert.Equal(t, 1, strings.Count(text, "pool heavy_pool\n"))
	assert.Contains(t, text, "pool heavy_pool\n  depth = 1\n")

	// no Go toolchain configured: no Go rules, no Go pool
	assert.NotContains(t, text, "golang_pool")
	assert.False(t, script.HasRule("gopackage"))
	assert.False(t, script.HasRule("gocommand"))
	assert.False(t, script.HasRule("gotest"))

	// no link job limit: no link pool, link rules unpooled
	assert.NotContains(t, text, "link_pool")

	// optimize resolves to the optimize flag bundle in release mode
	assert.Contains(t, text, "optimize_flags = -O2\n")
	assert.Contains(t, text, "optimize = $optimize_flags\n")

	// release profile defines NDEBUG in the assembled cppflags
	assert.Contains(t, text, "-DNDEBUG")
}

func TestGenerateDebugProfile(t *testing.T) {
	cfg := config.Default()
	text := generate(t, cfg, Options{Profile: "debug"}).Text()

	assert.Contains(t, text, "optimize = \n")
	assert.NotContains(t, text, "-DNDEBUG")
	assert.Contains(t, text, "-fstack-protector")
}

func TestGenerateDeclaresExpectedRules(t *testing.T) {
	cfg := config.Default()
	script := generate(t, cfg, Options{})

	for _, name := range []string{
		"copy", "cc", "cxx", "cchdrs", "securecccompile", "securecc", "ar",
		"link", "solink", "strip",
		"proto", "protojava", "protopython", "protodescriptors",
		"resource_index", "resource",
		"javac", "javaresource", "javajar", "javatest", "fatjar", "onejar",
		"javabinary", "scalac", "scalatest",
		"thrift", "pythonlibrary", "pythonbinary",
		"shelltest", "shelltestdata", "lex", "yacc",
		"package", "package_tar", "package_zip", "scm",
	} {
		assert.True(t, script.HasRule(name), "missing rule %s", name)
	}
}

func TestLinkPoolDepthIsCapped(t *testing.T) {
	cfg := config.Default()
	cfg.Link.LinkJobs = 8
	cfg.Global.BuildJobs = 4
	text := generate(t, cfg, Options{}).Text()

	assert.Contains(t, text, "pool link_pool\n  depth = 4\n")
	assert.Contains(t, text, "pool = link_pool")
}

func TestLinkPoolUsesConfiguredJobsWhenBelowBudget(t *testing.T) {
	cfg := config.Default()
	cfg.Link.LinkJobs = 2
	cfg.Global.BuildJobs = 16
	text := generate(t, cfg, Options{}).Text()

	assert.Contains(t, text, "pool link_pool\n  depth = 2\n")
}

func TestPipelineCaptureVariants(t *testing.T) {
	cfg := config.Default()

	withPipefail := generate(t, cfg, Options{Pipefail: ptr(true)}).Text()
	portable := generate(t, config.Default(), Options{Pipefail: ptr(false)}).Text()

	assert.NotEqual(t, withPipefail, portable)
	assert.Contains(t, withPipefail, "set -o pipefail")
	assert.NotContains(t, portable, "set -o pipefail")
	assert.Contains(t, portable, "${out}.err")
	// both split the inclusion stack into the side file
	assert.Contains(t, withPipefail, "${out}.H")
	assert.Contains(t, portable, "${out}.H")
}

func TestGoRulesActiveWithToolchain(t *testing.T) {
	cfg := config.Default()
	cfg.Go.GoHome = "/opt/gopath"
	cfg.Go.Go = "/usr/local/go/bin/go"
	script := generate(t, cfg, Options{})
	text := script.Text()

	assert.Contains(t, text, "pool golang_pool\n  depth = 1\n")
	for _, name := range []string{"gopackage", "gocommand", "gotest"} {
		assert.True(t, script.HasRule(name), "missing rule %s", name)
	}
	assert.Contains(t, text, "GOPATH=/opt/gopath /usr/local/go/bin/go install")
}

func TestGoRulesInactiveWithoutExecutable(t *testing.T) {
	cfg := config.Default()
	cfg.Go.GoHome = "/opt/gopath" // executable missing
	script := generate(t, cfg, Options{})

	assert.False(t, script.HasRule("gopackage"))
	assert.NotContains(t, script.Text(), "golang_pool")
}

func TestGoRulesModuleMode(t *testing.T) {
	cfg := config.Default()
	cfg.Go.GoHome = "/opt/gopath"
	cfg.Go.Go = "/usr/local/go/bin/go"
	cfg.Go.ModuleEnabled = true
	cfg.Go.ModuleRelPath = "src/backend"
	text := generate(t, cfg, Options{}).Text()

	assert.Contains(t, text, "cd src/backend && ")
	assert.NotContains(t, text, "GOPATH=")
}

func TestProtoGoPluginRequiresGoHome(t *testing.T) {
	cfg := config.Default()
	cfg.Proto.ProtocGoPlugin = "/usr/bin/protoc-gen-go"

	b := New(cfg, staticToolchain{}, staticAccel{}, Options{
		SourceDir: t.TempDir(),
		Pipefail:  ptr(true),
	})
	_, err := b.Generate()
	require.ErrorIs(t, err, ErrGoHomeNotSet)
}

func TestProtoGoModuleModeOutputDir(t *testing.T) {
	cfg := config.Default()
	cfg.Proto.ProtocGoPlugin = "/usr/bin/protoc-gen-go"
	cfg.Go.GoHome = "/opt/gopath"
	cfg.Go.ModuleEnabled = true
	cfg.Proto.ProtobufGoPath = "generated/go"
	text := generate(t, cfg, Options{}).Text()

	assert.Contains(t, text, "--go_out=generated/go ${in}")
	assert.NotContains(t, text, "--go_out=/opt/gopath/src")
}

func TestProtoGoGopathModeOutputDir(t *testing.T) {
	cfg := config.Default()
	cfg.Proto.ProtocGoPlugin = "/usr/bin/protoc-gen-go"
	cfg.Go.GoHome = "/opt/gopath"
	text := generate(t, cfg, Options{}).Text()

	assert.Contains(t, text, "--go_out=/opt/gopath/src")
}

func TestProtoGoSubplugins(t *testing.T) {
	cfg := config.Default()
	cfg.Proto.ProtocGoPlugin = "/usr/bin/protoc-gen-go"
	cfg.Go.GoHome = "/opt/gopath"
	cfg.Proto.ProtocGoSubplugins = []string{"grpc", "validate"}
	text := generate(t, cfg, Options{}).Text()

	assert.Contains(t, text, "--go_out=plugins=grpc+validate:/opt/gopath/src")
}

func TestBuiltinCommandShape(t *testing.T) {
	cfg := config.Default()
	cfg.Tool.Dir = "/opt/forge"
	b := New(cfg, staticToolchain{}, staticAccel{}, Options{Pipefail: ptr(true)})

	cmd := b.builtinCommand("java_jar", "jar ${out} ${in}")
	assert.Equal(t,
		"PYTHONPATH=/opt/forge:$$PYTHONPATH python3 -m forge.builtin_tools java_jar jar ${out} ${in}",
		cmd)

	cmd = b.builtinCommand("shell_test", "")
	assert.True(t, strings.HasSuffix(cmd, "shell_test ${out} ${in}"))
}

func TestThriftInTreeCompilerPath(t *testing.T) {
	cfg := config.Default()
	cfg.Thrift.Thrift = "//thirdparty/thrift:thrift"
	text := generate(t, cfg, Options{}).Text()

	assert.Contains(t, text, "build/thirdparty/thrift/thrift --gen")
}

func TestVersionStampStatements(t *testing.T) {
	cfg := config.Default()
	text := generate(t, cfg, Options{Profile: "release"}).Text()

	assert.Contains(t, text, "build build/scm.cc: scm\n")
	assert.Contains(t, text, "  compiler = gcc 13.2.0\n")
	assert.Contains(t, text, "  profile = release\n")
	assert.Contains(t, text, "build build/scm.cc.o: cxx build/scm.cc\n")
	assert.Contains(t, text, "  cppflags = -w -O2\n")
	// outside a repository the stamp degrades instead of failing
	assert.Contains(t, text, "  revision = unknown\n")
}

func TestRuleNamesExposedForInstanceEmitter(t *testing.T) {
	cfg := config.Default()
	script := generate(t, cfg, Options{})

	names := script.RuleNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "copy", names[0])
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		assert.False(t, seen[n], "duplicate rule name %s", n)
		seen[n] = true
	}
}
