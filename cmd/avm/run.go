package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/amberlang/avm/internal/config"
	"github.com/amberlang/avm/vm"
)

func newRunCmd() *cobra.Command {
	var debugMode bool
	var stackCapacity int
	var gcEveryAlloc bool

	cmd := &cobra.Command{
		Use:   "run <file.amc>",
		Short: "Execute a compiled AMBR bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			code, constants, err := vm.LoadContainer(f)
			if err != nil {
				return err
			}

			m := vm.NewVM(code, constants,
				vm.WithStackCapacity(stackCapacity),
				vm.WithGCEveryAlloc(gcEveryAlloc),
			)

			log.WithField("file", args[0]).Debug("loaded container")

			if debugMode {
				err = m.RunDebug(os.Stdin, os.Stdout)
			} else {
				err = m.Run()
			}

			var fault *vm.Fault
			if errors.As(err, &fault) {
				log.WithFields(logrusFields(fault)).Error("program faulted")
			}
			return err
		},
	}

	cfg := config.FromEnv()
	cmd.Flags().BoolVar(&debugMode, "debug", false, "enter single-step debug mode")
	cmd.Flags().IntVar(&stackCapacity, "stack-capacity", cfg.StackCapacity, "initial operand stack capacity")
	cmd.Flags().BoolVar(&gcEveryAlloc, "gc-every-alloc", cfg.GCEveryAlloc, "collect on every allocation and string ADD (disable only for debugging)")

	return cmd
}

func logrusFields(f *vm.Fault) map[string]interface{} {
	return map[string]interface{}{
		"kind": f.Kind.String(),
		"ip":   f.IP,
	}
}
