package commands

import (
	"attendqr/lib/qrdecode"
	"fmt"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <image>...",
		Short: "Prints the contents of the qr codes in the given images.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				content, ok := qrdecode.DecodeFile(cmd.Context(), path)
				if !ok {
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, content)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images had no readable qr code", failed, len(args))
			}
			return nil
		},
	}
}
