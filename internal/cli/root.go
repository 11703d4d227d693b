package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/agusx1211/scamsim/internal/buildinfo"
	"github.com/agusx1211/scamsim/internal/config"
	"github.com/agusx1211/scamsim/internal/debug"
)

const (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"

	// Combined styles
	styleBoldCyan  = "\033[1;36m"
	styleBoldGreen = "\033[1;32m"
	styleBoldRed   = "\033[1;31m"
	styleBoldWhite = "\033[1;37m"
)

var rootCmd = &cobra.Command{
	Use:   "scamsim",
	Short: "Scam conversation simulator",
	Long: colorBold + `
  ___  ___ __ _ _ __ ___  ___(_)_ __ ___
 / __|/ __/ _` + "`" + ` | '_ ` + "`" + ` _ \/ __| | '_ ` + "`" + ` _ \
 \__ \ (_| (_| | | | | | \__ \ | | | | | |
 |___/\___\__,_|_| |_| |_|___/_|_| |_| |_|` + colorReset + `

  ` + styleBoldCyan + `Scam conversation simulator` + colorReset + ` v` + buildinfo.Current().Version + `

  Replays scripted scam calls and chats against fictional personas, turn by
  turn, and reveals the indicators of compromise as the conversation goes.

` + colorBold + `Getting Started:` + colorReset + `
  scamsim                         Launch the interactive player
  scamsim list                    List personas and scenarios
  scamsim play tech-support       Play one scenario
  scamsim play lottery --plain    Print a scenario as plain text
  scamsim serve --qr              Start the web demo`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return cmd.Help()
		}
		return runPlay(cmd, nil)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose debug logging to ~/.scamsim/debug/")
	addPlayFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if !debugFlag && !debug.ShouldEnableFromEnv() {
			return nil
		}
		logPath, err := debug.Init(config.Dir())
		if err != nil {
			return fmt.Errorf("initializing debug logger: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s[debug]%s logging to %s\n", colorDim, colorReset, logPath)
		bi := buildinfo.Current()
		debug.LogKV("cli", "scamsim starting",
			"version", bi.Version,
			"commit", bi.CommitHash,
			"build_date", bi.BuildDate,
			"pid", os.Getpid(),
			"command", cmd.Name(),
			"args", args,
		)
		return nil
	}
}

// Execute runs the root command.
func Execute() {
	defer debug.Close()
	if err := rootCmd.Execute(); err != nil {
		debug.Logf("cli", "exit with error: %v", err)
		fmt.Fprintf(os.Stderr, "%sError: %s%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	debug.Log("cli", "exit success")
}
