// forge [path], forge gen [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forge-build/forge/internal/backend"
	"github.com/forge-build/forge/internal/config"
	"github.com/forge-build/forge/internal/msg"
	"github.com/forge-build/forge/internal/toolchain"
	"github.com/spf13/cobra"
)

const configFilename = "forge.toml"

var (
	flagProfile  = newEnumFlag("release", "debug", "release")
	flagBuildDir string
	flagJobs     int
)

func doGen(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	env := config.NewEnv(flagProfile.Value(), os.Environ())
	cfg, err := config.ParseFile(filepath.Join(dir, configFilename), env)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if flagBuildDir != "" {
		cfg.Global.BuildDir = flagBuildDir
	}
	if flagJobs > 0 {
		cfg.Global.BuildJobs = flagJobs
	}

	probe := toolchain.Detect()
	accel := toolchain.NewAccelerator(cfg.CC.Accelerator, probe)

	be := backend.New(cfg, probe, accel, backend.Options{
		Profile:   flagProfile.Value(),
		SourceDir: dir,
	})
	script, err := be.Generate()
	if err != nil {
		msg.Fatal("%v", err)
	}

	scriptPath := filepath.Join(dir, cfg.Global.BuildDir, "build.ninja")
	if err := os.MkdirAll(filepath.Dir(scriptPath), 0o755); err != nil {
		msg.Fatal("%v", err)
	}
	if err := script.WriteFile(scriptPath); err != nil {
		msg.Fatal("%v", err)
	}
	msg.Info("wrote %s (%d rules)", scriptPath, len(script.RuleNames()))
}

var rootCmd = &cobra.Command{
	Use:   "forge [workspace path]",
	Short: "Generate build rule scripts for polyglot workspaces",
	Long:  `Generate the ninja rule script that drives an incremental build of a polyglot workspace.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doGen,
}

var genCmd = &cobra.Command{
	Use:   "gen [workspace path]",
	Short: "Generate the rule script",
	Long:  `Generate the rule script. If no workspace path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doGen,
}

func init() {
	addGenFlags(rootCmd)

	rootCmd.AddCommand(genCmd)
	addGenFlags(genCmd)
}

func addGenFlags(cmd *cobra.Command) {
	cmd.Flags().VarP(flagProfile, "profile", "p", "Build profile, one of "+flagProfile.helpString())
	cmd.Flags().StringVar(&flagBuildDir, "build-dir", "", "Override the configured build directory")
	cmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "Override the configured build job budget")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
