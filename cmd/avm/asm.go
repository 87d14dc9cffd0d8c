package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/amberlang/avm/vm"
)

func newAsmCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "asm <file.avmasm>",
		Short: "Assemble AVM textual mnemonics into an AMBR bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var lines []string
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			code, constants, err := vm.Assemble(lines)
			if err != nil {
				return err
			}

			out, err := os.Create(output)
			if err != nil {
				return err
			}
			defer out.Close()

			log.WithField("code_bytes", len(code)).Debug("assembled")
			return vm.WriteContainer(out, code, constants)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "a.amc", "output AMBR container path")

	return cmd
}
