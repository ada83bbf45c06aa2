// forge init
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/forge-build/forge/internal/msg"
	"github.com/spf13/cobra"
)

const starterConfig = `[global]
build_dir = "build"
debug_info_level = "mid"

[cc]
cppflags = []
extra_incs = ["thirdparty"]

[cc.'target_os == "linux"']
linkflags = ["-lrt"]

[link]
# link_jobs = 4

[proto]
protoc = "protoc"
protobuf_incs = ["thirdparty"]
`

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter forge.toml into a workspace",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		writefile(starterConfig, dir, configFilename)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
