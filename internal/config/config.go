package config

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// Config is the resolved global configuration. Each section corresponds to a
// table in forge.toml and is read-only once parsed; rule generators never
// mutate it.
type Config struct {
	Global GlobalSection `toml:"global"`
	CC     CCSection     `toml:"cc"`
	Link   LinkSection   `toml:"link"`
	Proto  ProtoSection  `toml:"proto"`
	Java   JavaSection   `toml:"java"`
	Scala  ScalaSection  `toml:"scala"`
	Go     GoSection     `toml:"go"`
	Thrift ThriftSection `toml:"thrift"`
	Tool   ToolSection   `toml:"tool"`
}

// GlobalSection defines the [global] section
type GlobalSection struct {
	BuildDir       string `toml:"build_dir"`
	DebugInfoLevel string `toml:"debug_info_level"`
	BuildJobs      int    `toml:"build_jobs"`
	Bits           string `toml:"bits"` // passed as -m32/-m64 when set
	Gprof          bool   `toml:"gprof"`
	Coverage       bool   `toml:"coverage"`
}

// CCSection defines the [cc] section
type CCSection struct {
	CFlags          []string            `toml:"cflags"`
	CXXFlags        []string            `toml:"cxxflags"`
	CPPFlags        []string            `toml:"cppflags"`
	LinkFlags       []string            `toml:"linkflags"`
	Warnings        []string            `toml:"warnings"`
	CWarnings       []string            `toml:"c_warnings"`
	CXXWarnings     []string            `toml:"cxx_warnings"`
	Optimize        []string            `toml:"optimize"`
	ExtraIncs       []string            `toml:"extra_incs"`
	ARFlags         []string            `toml:"arflags"`
	SecureCC        string              `toml:"securecc"`
	Accelerator     string              `toml:"accelerator"` // e.g. "ccache" or "distcc"
	DebugInfoLevels map[string][]string `toml:"debug_info_levels"`
}

// LinkSection defines the [link] section
type LinkSection struct {
	LinkJobs int `toml:"link_jobs"` // 0 means unbounded (no link pool)
}

// ProtoSection defines the [proto] section
type ProtoSection struct {
	Protoc             string   `toml:"protoc"`
	ProtocJava         string   `toml:"protoc_java"`
	ProtobufIncs       []string `toml:"protobuf_incs"`
	ProtobufJavaIncs   []string `toml:"protobuf_java_incs"`
	ProtocGoPlugin     string   `toml:"protoc_go_plugin"`
	ProtocGoSubplugins []string `toml:"protoc_go_subplugins"`
	ProtobufGoPath     string   `toml:"protobuf_go_path"`
}

// JavaSection defines the [java] section
type JavaSection struct {
	JavaHome      string `toml:"java_home"`
	Version       string `toml:"version"`
	SourceVersion string `toml:"source_version"`
	TargetVersion string `toml:"target_version"`
	OneJarBootJar string `toml:"one_jar_boot_jar"`
	JacocoHome    string `toml:"jacoco_home"`
}

// ScalaSection defines the [scala] section
type ScalaSection struct {
	ScalaHome string `toml:"scala_home"`
}

// GoSection defines the [go] section
type GoSection struct {
	Go            string `toml:"go"`
	GoHome        string `toml:"go_home"`
	ModuleEnabled bool   `toml:"go_module_enabled"`
	ModuleRelPath string `toml:"go_module_relpath"`
}

// ThriftSection defines the [thrift] section
type ThriftSection struct {
	Thrift    string   `toml:"thrift"`
	Incs      []string `toml:"thrift_incs"`
	GenParams string   `toml:"thrift_gen_params"`
}

// ToolSection defines the [tool] section: how the builtin tool dispatcher is
// invoked from generated commands.
type ToolSection struct {
	Interpreter string `toml:"interpreter"`
	Module      string `toml:"module"`
	Dir         string `toml:"dir"`
}

// Default returns the configuration used when forge.toml is absent or leaves
// a key unset. Parsed files overlay it key by key.
func Default() *Config {
	return &Config{
		Global: GlobalSection{
			BuildDir:       "build",
			DebugInfoLevel: "mid",
			BuildJobs:      runtime.NumCPU(),
		},
		CC: CCSection{
			Warnings: []string{
				"-Wall", "-Wextra", "-Wformat=2", "-Wvla",
				"-Wmissing-include-dirs", "-Wwrite-strings",
			},
			CWarnings:   []string{"-Wmissing-prototypes", "-Wstrict-prototypes"},
			CXXWarnings: []string{"-Wnon-virtual-dtor", "-Woverloaded-virtual"},
			Optimize:    []string{"-O2"},
			ARFlags:     []string{"rcs"},
			SecureCC:    "securecc",
			DebugInfoLevels: map[string][]string{
				"no":   {"-g0"},
				"low":  {"-g1"},
				"mid":  {"-g"},
				"high": {"-g3"},
			},
		},
		Proto: ProtoSection{
			Protoc: "protoc",
		},
		Thrift: ThriftSection{
			Thrift:    "thrift",
			GenParams: "cpp:include_prefix,pure_enums",
		},
		Tool: ToolSection{
			Interpreter: "python3",
			Module:      "forge.builtin_tools",
			Dir:         ".",
		},
	}
}

// Parse reads a forge.toml on top of the defaults. Sections whose sub-tables
// are keyed by expressions (e.g. [cc.'target_os == "linux"']) are merged in
// only when the expression evaluates to true for env.
func Parse(rdr io.Reader, env Env) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	processed, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, err
	}
	rawConfig = processed.(map[string]any)

	cfg := Default()
	if err := unmarshalSection(rawConfig, "global", &cfg.Global); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "cc", &cfg.CC, env); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "link", &cfg.Link, env); err != nil {
		return nil, err
	}
	if err := unmarshalSection(rawConfig, "proto", &cfg.Proto); err != nil {
		return nil, err
	}
	if err := unmarshalSection(rawConfig, "java", &cfg.Java); err != nil {
		return nil, err
	}
	if err := unmarshalSection(rawConfig, "scala", &cfg.Scala); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "go", &cfg.Go, env); err != nil {
		return nil, err
	}
	if err := unmarshalSection(rawConfig, "thrift", &cfg.Thrift); err != nil {
		return nil, err
	}
	if err := unmarshalSection(rawConfig, "tool", &cfg.Tool); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseFile parses a config file from a filepath. A missing file yields the
// defaults.
func ParseFile(path string, env Env) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	defer f.Close()

	return Parse(bufio.NewReader(f), env)
}

// ExpandDirs resolves the configured include roots against basedir, expanding
// doublestar glob patterns into the matching directories. Entries without
// glob metacharacters pass through untouched so that roots which do not exist
// yet (generated headers) stay referenced.
func ExpandDirs(basedir string, patterns []string) ([]string, error) {
	var dirs []string
	fsys := os.DirFS(basedir)
	for _, pat := range patterns {
		if !strings.ContainsAny(pat, "*?[{") {
			dirs = append(dirs, pat)
			continue
		}
		matches, err := doublestar.Glob(fsys, pat)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if st, err := os.Stat(filepath.Join(basedir, match)); err == nil && st.IsDir() {
				dirs = append(dirs, match)
			}
		}
	}
	return dirs, nil
}
