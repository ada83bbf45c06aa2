package backend

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/forge-build/forge/internal/config"
	"github.com/forge-build/forge/internal/msg"
)

// hdrsSentinel is the last, irrelevant part of gcc's -H output. Everything
// from this line on is dropped from the captured inclusion stack.
const hdrsSentinel = "Multiple include guards may be useful for:"

// To verify that a header is not included without depending on the library
// it belongs to, compile rules run the compiler with -H and capture the
// inclusion stack. That output shares stderr with ordinary diagnostics, so
// an awk program splits the streams: lines whose first field is a run of
// dots go to the ${out}.H side file, the rest stays on stderr. The $$ forms
// are expanded to literal $ by the executor. filterIncludeStack is the
// in-process twin of this program.
const includeStackAwk = `'BEGIN {stop=0} /^Multiple include guards may be useful for:/ {stop=1} !stop {if ($$1 ~/^\.+$$/) print $$0; else print $$0 > "/dev/stderr"}'`

// filterIncludeStack splits a compiler diagnostic stream the same way the
// embedded awk program does: include-stack lines (leading run of dots) go to
// stack, everything else to rest, and nothing at all once the sentinel line
// has been seen.
func filterIncludeStack(diag io.Reader, stack, rest io.Writer) error {
	sc := bufio.NewScanner(diag)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	stop := false
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, hdrsSentinel) {
			stop = true
		}
		if stop {
			continue
		}
		if isIncludeStackLine(line) {
			fmt.Fprintln(stack, line)
		} else {
			fmt.Fprintln(rest, line)
		}
	}
	return sc.Err()
}

// isIncludeStackLine reports whether the first whitespace-delimited field is
// one or more dots, the shape of gcc -H inclusion-depth markers.
func isIncludeStackLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	for _, r := range fields[0] {
		if r != '.' {
			return false
		}
	}
	return true
}

// hdrsCaptureTemplate wraps a compile command (the single %s) so that the -H
// inclusion stack lands in ${out}.H while diagnostics pass through. With
// pipefail any failing pipe stage aborts the rule; shells like dash lack the
// option, so the portable variant stages through a temp file instead.
func (b *Backend) hdrsCaptureTemplate() string {
	if b.pipefail {
		return "set -o pipefail && %s -H 2>&1 | awk " + includeStackAwk + " > ${out}.H"
	}
	return "%s -H 2> ${out}.err && awk " + includeStackAwk + " < ${out}.err > ${out}.H && rm -f ${out}.err"
}

// hdrsCommand preprocesses one unit and captures its full inclusion stack.
// -fdirectives-only speeds preprocessing up considerably but mishandles some
// edge cases (a __COUNTER__ in a directive, for one), so the full
// preprocessor is retried automatically when the fast attempt fails.
func hdrsCommand(cc string, flags, cppflags []string, includes string) string {
	args := fmt.Sprintf("-o /dev/null -E -H %s %s -w ${cppflags} %s ${includes} ${in} 2> ${out}",
		strings.Join(flags, " "), strings.Join(cppflags, " "), includes)
	fast := fmt.Sprintf("%s -fdirectives-only %s", cc, args)
	full := fmt.Sprintf("%s %s", cc, args)
	return fast + " || " + full
}

// ccFlags assembles the profile-dependent preprocessor and linker flags,
// filtered down to what the resolved compiler accepts.
func (b *Backend) ccFlags() (cppflags, linkflags []string) {
	if bits := b.cfg.Global.Bits; bits != "" {
		cppflags = append(cppflags, "-m"+bits)
		linkflags = append(linkflags, "-m"+bits)
	}
	// Keep frame pointers in optimized builds for usable stack traces.
	cppflags = append(cppflags, "-pipe", "-fno-omit-frame-pointer")

	cppflags = append(cppflags, b.cfg.CC.DebugInfoLevels[b.cfg.Global.DebugInfoLevel]...)

	switch b.profile {
	case "debug":
		cppflags = append(cppflags, "-fstack-protector")
	case "release":
		cppflags = append(cppflags, "-DNDEBUG")
	}

	cppflags = append(cppflags,
		"-D_FILE_OFFSET_BITS=64",
		"-D__STDC_CONSTANT_MACROS",
		"-D__STDC_FORMAT_MACROS",
		"-D__STDC_LIMIT_MACROS",
	)

	if b.cfg.Global.Gprof {
		cppflags = append(cppflags, "-pg")
		linkflags = append(linkflags, "-pg")
	}
	if b.cfg.Global.Coverage {
		cppflags = append(cppflags, "--coverage")
		linkflags = append(linkflags, "--coverage")
	}

	return b.tc.FilterFlags(cppflags, ""), linkflags
}

// ccVars resolves the warning and optimize flag bundles into script-level
// variables so rule commands can reference them symbolically.
func (b *Backend) ccVars() {
	warnings := b.tc.FilterFlags(b.cfg.CC.Warnings, "")
	cWarnings := append(b.tc.FilterFlags(b.cfg.CC.CWarnings, "c"), warnings...)
	cxxWarnings := append(b.tc.FilterFlags(b.cfg.CC.CXXWarnings, "c++"), warnings...)

	// optimize_flags stays split out so always-optimize targets can use it
	// in debug builds too.
	optimize := ""
	if b.profile == "release" {
		optimize = "$optimize_flags"
	}

	b.script.Variable("c_warnings", strings.Join(cWarnings, " "))
	b.script.Variable("cxx_warnings", strings.Join(cxxWarnings, " "))
	b.script.Variable("optimize_flags", strings.Join(b.cfg.CC.Optimize, " "))
	b.script.Variable("optimize", optimize)
	b.script.Raw("")
}

func includeOptions(incs []string) string {
	opts := make([]string, len(incs))
	for i, inc := range incs {
		opts[i] = "-I" + inc
	}
	return strings.Join(opts, " ")
}

func (b *Backend) ccRules() error {
	cc, cxx, ld := b.accel.CCCommands()
	ccCfg := b.cfg.CC

	cppflags, ldflags := b.ccFlags()
	cppflags = append(slices.Clone(ccCfg.CPPFlags), cppflags...)
	ldflags = append(slices.Clone(ccCfg.LinkFlags), ldflags...)
	arflags := strings.Join(ccCfg.ARFlags, "")

	incRoots, err := config.ExpandDirs(b.srcDir, ccCfg.ExtraIncs)
	if err != nil {
		return err
	}
	incRoots = append(incRoots, ".", b.buildDir)
	includes := includeOptions(incRoots)

	b.ccVars()

	capture := b.hdrsCaptureTemplate()

	ccCommand := fmt.Sprintf("%s -o ${out} -MMD -MF ${out}.d -c -fPIC %s %s ${optimize} "+
		"${c_warnings} ${cppflags} %s ${includes} ${in}",
		cc, strings.Join(ccCfg.CFlags, " "), strings.Join(cppflags, " "), includes)
	if err := b.script.Rule(Rule{
		Name:        "cc",
		Command:     fmt.Sprintf(capture, ccCommand),
		Description: "CC ${in}",
		Depfile:     "${out}.d",
		Deps:        DepsGCC,
	}); err != nil {
		return err
	}

	cxxCommand := fmt.Sprintf("%s -o ${out} -MMD -MF ${out}.d -c -fPIC %s %s ${optimize} "+
		"${cxx_warnings} ${cppflags} %s ${includes} ${in}",
		cxx, strings.Join(ccCfg.CXXFlags, " "), strings.Join(cppflags, " "), includes)
	if err := b.script.Rule(Rule{
		Name:        "cxx",
		Command:     fmt.Sprintf(capture, cxxCommand),
		Description: "CXX ${in}",
		Depfile:     "${out}.d",
		Deps:        DepsGCC,
	}); err != nil {
		return err
	}

	if err := b.script.Rule(Rule{
		Name:        "cchdrs",
		Command:     hdrsCommand(cxx, ccCfg.CXXFlags, cppflags, includes),
		Description: "CC HDRS ${in}",
	}); err != nil {
		return err
	}

	securecc := fmt.Sprintf("%s %s", ccCfg.SecureCC, cxx)
	if err := b.script.Rule(Rule{
		Name: "securecccompile",
		Command: fmt.Sprintf("%s -o ${out} -c -fPIC %s %s ${optimize} ${cxx_warnings} ${cppflags} %s ${includes} ${in}",
			securecc, strings.Join(ccCfg.CXXFlags, " "), strings.Join(cppflags, " "), includes),
		Description: "SECURECC ${in}",
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name:        "securecc",
		Command:     b.builtinCommand("securecc_object", ""),
		Description: "SECURECC ${in}",
		Restat:      true,
	}); err != nil {
		return err
	}

	if err := b.script.Rule(Rule{
		Name:        "ar",
		Command:     fmt.Sprintf("rm -f $out; ar %s $out $in", arflags),
		Description: "AR ${out}",
	}); err != nil {
		return err
	}

	pool := ""
	if linkJobs := b.cfg.Link.LinkJobs; linkJobs > 0 {
		jobs := min(linkJobs, b.cfg.Global.BuildJobs)
		msg.Info("adjust parallel link jobs number to %d", jobs)
		if err := b.script.Pool("link_pool", jobs); err != nil {
			return err
		}
		pool = "link_pool"
	}
	if err := b.script.Rule(Rule{
		Name: "link",
		Command: fmt.Sprintf("%s -o ${out} %s ${ldflags} ${in} ${extra_ldflags}",
			ld, strings.Join(ldflags, " ")),
		Description: "LINK ${out}",
		Pool:        pool,
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name: "solink",
		Command: fmt.Sprintf("%s -o ${out} -shared %s ${ldflags} ${in} ${extra_ldflags}",
			ld, strings.Join(ldflags, " ")),
		Description: "SHAREDLINK ${out}",
		Pool:        pool,
	}); err != nil {
		return err
	}
	return b.script.Rule(Rule{
		Name:        "strip",
		Command:     "strip --strip-unneeded -o ${out} ${in}",
		Description: "STRIP ${out}",
	})
}
