package backend

import (
	"fmt"
	"path/filepath"
	"strings"
)

// incsToString formats include roots as "-I path" options.
func incsToString(incs []string) string {
	opts := make([]string, len(incs))
	for i, inc := range incs {
		opts[i] = "-I " + inc
	}
	return strings.Join(opts, " ")
}

func (b *Backend) thriftRules() error {
	tc := b.cfg.Thrift
	thrift := tc.Thrift
	// An in-tree compiler referenced by a build label resolves against the
	// build dir, where the bootstrap pass placed it.
	if strings.HasPrefix(thrift, "//") {
		thrift = strings.Replace(thrift, "//", b.buildDir+"/", 1)
		thrift = strings.ReplaceAll(thrift, ":", "/")
	}
	return b.script.Rule(Rule{
		Name: "thrift",
		Command: fmt.Sprintf("%s --gen %s -I . %s -I `dirname ${in}` "+
			"-out %s/`dirname ${in}` ${in}",
			thrift, tc.GenParams, incsToString(tc.Incs), b.buildDir),
		Description: "THRIFT ${in}",
	})
}

func (b *Backend) pythonRules() error {
	if err := b.script.Rule(Rule{
		Name:        "pythonlibrary",
		Command:     b.builtinCommand("python_library", "--basedir=${basedir} --pylib=${out} ${in}"),
		Description: "PYTHON LIBRARY ${out}",
	}); err != nil {
		return err
	}
	return b.script.Rule(Rule{
		Name: "pythonbinary",
		Command: b.builtinCommand("python_binary",
			"--basedir=${basedir} --exclusions=${exclusions} --mainentry=${mainentry} --pybin=${out} ${in}"),
		Description: "PYTHON BINARY ${out}",
	})
}

// goRules declares the go install/build/test rules. They are inactive unless
// both the Go home and the executable are configured; the toolchain's own
// build cache is not assumed safe for unbounded concurrent invocation, so
// all three share a single-slot pool.
func (b *Backend) goRules() error {
	gc := b.cfg.Go
	if gc.GoHome == "" || gc.Go == "" {
		return nil
	}
	const goPool = "golang_pool"
	if err := b.script.Pool(goPool, 1); err != nil {
		return err
	}

	prefix := gc.Go
	outRelative := ""
	if gc.ModuleEnabled {
		if gc.ModuleRelPath != "" {
			relative := gc.Go
			if rel, err := filepath.Rel(gc.ModuleRelPath, gc.Go); err == nil {
				relative = rel
			}
			prefix = fmt.Sprintf("cd %s && %s", gc.ModuleRelPath, relative)
			if rel, err := filepath.Rel(gc.ModuleRelPath, "."); err == nil {
				outRelative = rel + "/"
			}
		}
	} else {
		goPath := gc.GoHome
		if abs, err := filepath.Abs(gc.GoHome); err == nil {
			goPath = abs
		}
		prefix = fmt.Sprintf("GOPATH=%s %s", goPath, gc.Go)
	}

	if err := b.script.Rule(Rule{
		Name:        "gopackage",
		Command:     fmt.Sprintf("%s install ${extra_goflags} ${package}", prefix),
		Description: "GO INSTALL ${package}",
		Pool:        goPool,
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name:        "gocommand",
		Command:     fmt.Sprintf("%s build -o %s${out} ${extra_goflags} ${package}", prefix, outRelative),
		Description: "GO BUILD ${package}",
		Pool:        goPool,
	}); err != nil {
		return err
	}
	return b.script.Rule(Rule{
		Name:        "gotest",
		Command:     fmt.Sprintf("%s test -c -o %s${out} ${extra_goflags} ${package}", prefix, outRelative),
		Description: "GO TEST ${package}",
		Pool:        goPool,
	})
}

func (b *Backend) shellRules() error {
	if err := b.script.Rule(Rule{
		Name:        "shelltest",
		Command:     b.builtinCommand("shell_test", ""),
		Description: "SHELL TEST ${out}",
	}); err != nil {
		return err
	}
	return b.script.Rule(Rule{
		Name:        "shelltestdata",
		Command:     b.builtinCommand("shell_testdata", "${out} ${in} ${testdata}"),
		Description: "SHELL TEST DATA ${out}",
	})
}

func (b *Backend) lexYaccRules() error {
	if err := b.script.Rule(Rule{
		Name:        "lex",
		Command:     "flex ${lexflags} -o ${out} ${in}",
		Description: "LEX ${in}",
	}); err != nil {
		return err
	}
	return b.script.Rule(Rule{
		Name:        "yacc",
		Command:     "bison ${yaccflags} -o ${out} ${in}",
		Description: "YACC ${in}",
	})
}
