package backend

import (
	"fmt"
	"path/filepath"
	"strings"
)

// javaCommand resolves a JDK tool under the configured home, falling back to
// the bare command name on the search path.
func (b *Backend) javaCommand(cmd string) string {
	if home := b.cfg.Java.JavaHome; home != "" {
		return filepath.Join(home, "bin", cmd)
	}
	return cmd
}

func (b *Backend) jacocoAgent() string {
	if home := b.cfg.Java.JacocoHome; home != "" {
		return filepath.Join(home, "lib", "jacocoagent.jar")
	}
	return ""
}

func (b *Backend) javacRule() error {
	javac := b.javaCommand("javac")
	jar := b.javaCommand("jar")
	jc := b.cfg.Java

	cmd := []string{javac}
	sourceVersion := jc.SourceVersion
	if sourceVersion == "" {
		sourceVersion = jc.Version
	}
	targetVersion := jc.TargetVersion
	if targetVersion == "" {
		targetVersion = jc.Version
	}
	if sourceVersion != "" {
		cmd = append(cmd, "-source "+sourceVersion)
	}
	if targetVersion != "" {
		cmd = append(cmd, "-target "+targetVersion)
	}
	cmd = append(cmd,
		"-encoding ${source_encoding}",
		"-d ${classes_dir}",
		"-classpath ${classpath}",
		"${javacflags}",
		"${in}",
	)

	b.script.Variable("source_encoding", "UTF-8")
	b.script.Variable("classpath", ".")
	b.script.Variable("javacflags", "")
	b.script.Raw("")

	// The classes dir is reset first so classes whose sources were removed
	// never survive into the jar.
	return b.script.Rule(Rule{
		Name: "javac",
		Command: fmt.Sprintf("rm -fr ${classes_dir} && mkdir -p ${classes_dir} && "+
			"%s && sleep 0.01 && %s cf ${out} -C ${classes_dir} .",
			strings.Join(cmd, " "), jar),
		Description: "JAVAC ${out}",
	})
}

func (b *Backend) scalaCommand(cmd string) string {
	if home := b.cfg.Scala.ScalaHome; home != "" {
		return filepath.Join(home, "bin", cmd)
	}
	return cmd
}

func (b *Backend) scalacRule() error {
	b.script.Variable("scalacflags", "-nowarn")
	b.script.Raw("")
	cmd := []string{
		"JAVACMD=" + b.javaCommand("java"),
		b.scalaCommand("scalac"),
		"-encoding UTF8",
		"-d ${out}",
		"-classpath ${classpath}",
		"${scalacflags}",
		"${in}",
	}
	return b.script.Rule(Rule{
		Name:        "scalac",
		Command:     strings.Join(cmd, " "),
		Description: "SCALAC ${out}",
	})
}

func (b *Backend) scalatestRule() error {
	args := fmt.Sprintf("--java=%s --scala=%s --jacocoagent=%s "+
		"--packages_under_test=${packages_under_test} --script=${out} ${in}",
		b.javaCommand("java"), b.scalaCommand("scala"), b.jacocoAgent())
	return b.script.Rule(Rule{
		Name:        "scalatest",
		Command:     b.builtinCommand("scala_test", args),
		Description: "SCALA TEST ${out}",
	})
}

func (b *Backend) javaScalaRules() error {
	if err := b.javacRule(); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name:        "javaresource",
		Command:     b.builtinCommand("java_resource", ""),
		Description: "JAVA RESOURCE ${in}",
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name:        "javajar",
		Command:     b.builtinCommand("java_jar", fmt.Sprintf("%s ${out} ${in}", b.javaCommand("jar"))),
		Description: "JAVA JAR ${out}",
	}); err != nil {
		return err
	}
	testArgs := fmt.Sprintf("--script=${out} --main_class=${mainclass} --jacocoagent=%s "+
		"--packages_under_test=${packages_under_test} ${in}", b.jacocoAgent())
	if err := b.script.Rule(Rule{
		Name:        "javatest",
		Command:     b.builtinCommand("java_test", testArgs),
		Description: "JAVA TEST ${out}",
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name:        "fatjar",
		Command:     b.builtinCommand("java_fatjar", ""),
		Description: "FAT JAR ${out}",
	}); err != nil {
		return err
	}
	oneJarArgs := fmt.Sprintf("--onejar=${out} --bootjar=%s --main_class=${mainclass} ${in}",
		b.cfg.Java.OneJarBootJar)
	if err := b.script.Rule(Rule{
		Name:        "onejar",
		Command:     b.builtinCommand("java_onejar", oneJarArgs),
		Description: "ONE JAR ${out}",
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name:        "javabinary",
		Command:     b.builtinCommand("java_binary", ""),
		Description: "JAVA BIN ${out}",
	}); err != nil {
		return err
	}
	if err := b.scalacRule(); err != nil {
		return err
	}
	return b.scalatestRule()
}
