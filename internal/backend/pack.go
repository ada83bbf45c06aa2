package backend

import (
	"fmt"
	"path/filepath"

	"github.com/forge-build/forge/internal/scm"
)

func (b *Backend) resourceRules() error {
	if err := b.script.Rule(Rule{
		Name:        "resource_index",
		Command:     b.builtinCommand("resource_index", "${name} ${path} ${out} ${in}"),
		Description: "RESOURCE INDEX ${out}",
	}); err != nil {
		return err
	}
	return b.script.Rule(Rule{
		Name: "resource",
		Command: `xxd -i ${in} | sed -e "s/^unsigned char /const char RESOURCE_/g" ` +
			`-e "s/^unsigned int /const unsigned int RESOURCE_/g" > ${out}`,
		Description: "RESOURCE ${in}",
	})
}

func (b *Backend) packageRules() error {
	if err := b.script.Rule(Rule{
		Name:        "package",
		Command:     b.builtinCommand("package", "${out} ${in} ${entries}"),
		Description: "PACKAGE ${out}",
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name:        "package_tar",
		Command:     "tar -c -f ${out} ${tarflags} -C ${packageroot} ${entries}",
		Description: "TAR ${out}",
	}); err != nil {
		return err
	}
	return b.script.Rule(Rule{
		Name: "package_zip",
		Command: "cd ${packageroot} && zip -q temp_archive.zip ${entries} && " +
			"cd - && mv ${packageroot}/temp_archive.zip ${out}",
		Description: "ZIP ${out}",
	})
}

// versionRules stamps the source-control state into a small generated
// translation unit. The repository is queried once per pass; the generated
// code is compiled with warnings off since it is exempt from the project
// lint policy.
func (b *Backend) versionRules() error {
	state := scm.Load(b.srcDir)

	args := `--scm=${out} --revision=${revision} --url=${url} --profile=${profile} ` +
		`--compiler="${compiler}" --build_id=${build_id}`
	if err := b.script.Rule(Rule{
		Name:        "scm",
		Command:     b.builtinCommand("scm", args),
		Description: "SCM ${out}",
	}); err != nil {
		return err
	}

	unit := filepath.Join(b.buildDir, "scm.cc")
	b.script.Raw(fmt.Sprintf(
		"build %s: scm\n  revision = %s\n  url = %s\n  profile = %s\n  compiler = %s %s\n  build_id = %s\n",
		unit, state.Revision, state.URL, b.profile,
		b.tc.Compiler(), b.tc.CompilerVersion(), b.buildID))
	b.script.Raw(fmt.Sprintf(
		"build %s.o: cxx %s\n  cppflags = -w -O2\n  cxx_warnings =\n",
		unit, unit))
	return nil
}
