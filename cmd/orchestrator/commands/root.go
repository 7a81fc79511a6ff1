// Package commands provides the orchestrator CLI.
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-session/orchestrator/internal/config"
	"github.com/agentic-session/orchestrator/internal/logging"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

var (
	printLogs  bool
	logLevel   string
	logFile    bool
	showConfig bool
	model      string
)

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Agentic Session Orchestrator",
	Long: `Runs the agentic session orchestrator: a Session Store holding an
append-only exchange log per session, a Tool Dispatcher validating and
executing declared tool calls, a Tool-Use Agent Driver looping a
provider against that log until a terminal tool fires, and a
Scratch-Pad Reactor serializing editor and LSP pressure against
whichever session is in flight.

Run 'orchestrator serve' to start the HTTP/SSE surface.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCfg := logging.Config{
			Level:     logging.ParseLevel(logLevel),
			Output:    os.Stderr,
			Pretty:    printLogs,
			LogToFile: logFile,
		}
		if !printLogs && !logFile {
			logCfg.Level = logging.FatalLevel
		}
		logging.Init(logCfg)

		if showConfig {
			dir, err := os.Getwd()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error getting working directory: %v\n", err)
				os.Exit(1)
			}
			cfg, err := config.Load(dir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
				os.Exit(1)
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "error marshaling config: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
			os.Exit(0)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "write logs to a timestamped file under /tmp")
	rootCmd.PersistentFlags().BoolVar(&showConfig, "show-config", false, "print merged configuration as JSON and exit")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "model to use (provider/model format)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("orchestrator %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns dir if set, else the process's current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// GetGlobalModel returns the --model flag value.
func GetGlobalModel() string {
	return model
}
