package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amberlang/avm/vm"
)

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.amc>",
		Short: "Disassemble an AMBR bytecode file",
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

			fmt.Print(vm.Disassemble(code, constants))
			return nil
		},
	}
}
