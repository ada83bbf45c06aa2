package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrGoHomeNotSet reports a Go-targeting protobuf plugin configured without
// the Go toolchain location it needs. Generation aborts rather than emitting
// a script with a silently missing code generator.
var ErrGoHomeNotSet = errors.New(`"go.go_home" is not configured`)

// protocImportPath formats include roots as repeated -I= options.
// ["thirdparty", "include"] -> "-I=thirdparty -I=include"
func protocImportPath(incs []string) string {
	opts := make([]string, len(incs))
	for i, inc := range incs {
		opts[i] = "-I=" + inc
	}
	return strings.Join(opts, " ")
}

func (b *Backend) protoRules() error {
	pc := b.cfg.Proto
	protoc := pc.Protoc
	protocJava := protoc
	if pc.ProtocJava != "" {
		protocJava = pc.ProtocJava
	}
	incs := protocImportPath(pc.ProtobufIncs)
	javaIncs := incs
	if len(pc.ProtobufJavaIncs) > 0 {
		javaIncs = protocImportPath(pc.ProtobufJavaIncs)
	}

	b.script.Variable("protocflags", "")
	b.script.Variable("protoccpppluginflags", "")
	b.script.Variable("protocjavapluginflags", "")
	b.script.Variable("protocpythonpluginflags", "")
	b.script.Raw("")

	if err := b.script.Rule(Rule{
		Name: "proto",
		Command: fmt.Sprintf("%s --proto_path=. %s -I=`dirname ${in}` "+
			"--cpp_out=%s ${protocflags} ${protoccpppluginflags} ${in}",
			protoc, incs, b.buildDir),
		Description: "PROTOC ${in}",
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name: "protojava",
		Command: fmt.Sprintf("%s --proto_path=. %s --java_out=%s/`dirname ${in}` "+
			"${protocjavapluginflags} ${in}",
			protocJava, javaIncs, b.buildDir),
		Description: "PROTOCJAVA ${in}",
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name: "protopython",
		Command: fmt.Sprintf("%s --proto_path=. %s -I=`dirname ${in}` "+
			"--python_out=%s ${protocpythonpluginflags} ${in}",
			protoc, incs, b.buildDir),
		Description: "PROTOCPYTHON ${in}",
	}); err != nil {
		return err
	}
	if err := b.script.Rule(Rule{
		Name: "protodescriptors",
		Command: fmt.Sprintf("%s --proto_path=. %s -I=`dirname ${first}` "+
			"--descriptor_set_out=${out} --include_imports --include_source_info ${in}",
			protoc, incs),
		Description: "PROTODESCRIPTORS ${in}",
	}); err != nil {
		return err
	}

	if pc.ProtocGoPlugin == "" {
		return nil
	}
	gc := b.cfg.Go
	if gc.GoHome == "" {
		return ErrGoHomeNotSet
	}
	var outdir string
	if gc.ModuleEnabled {
		outdir = pc.ProtobufGoPath
	} else {
		outdir = filepath.Join(gc.GoHome, "src")
	}
	goOut := outdir
	if len(pc.ProtocGoSubplugins) > 0 {
		goOut = fmt.Sprintf("plugins=%s:%s", strings.Join(pc.ProtocGoSubplugins, "+"), outdir)
	}
	return b.script.Rule(Rule{
		Name: "protogo",
		Command: fmt.Sprintf("%s --proto_path=. %s -I=`dirname ${in}` "+
			"--plugin=protoc-gen-go=%s --go_out=%s ${in}",
			protoc, incs, pc.ProtocGoPlugin, goOut),
		Description: "PROTOCGOLANG ${in}",
	})
}
