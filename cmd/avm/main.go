// Command avm runs, assembles, and disassembles Amber bytecode programs.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amberlang/avm/internal/config"
)

var log = logrus.New()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "avm",
		Short: "Amber Virtual Machine toolchain",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			log.SetLevel(level)
			return nil
		},
	}

	cfg := config.FromEnv()
	root.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newAsmCmd())
	root.AddCommand(newDisasmCmd())

	return root
}
