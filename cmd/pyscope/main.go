package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pyscope/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "pyscope",
	Short: "Whole-program type inference for Python-like sources",
	Long:  `pyscope infers types, resolves names and reports semantic issues across a whole source tree`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag against the terminal state.
func useColor(mode string) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	return isTerminal(os.Stdout)
}
