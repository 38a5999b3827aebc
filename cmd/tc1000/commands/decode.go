package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ftl/tc1000/proto"
	"github.com/ftl/tc1000/tc"
)

func DecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [line]",
		Short: "Decode status lines of the temperature controller",
		Long: "Decode parses the given status line, or every line of the standard input, the way the\n" +
			"bridge does and prints the result. This helps when looking into a trace file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unitName, err := cmd.Flags().GetString("unit")
			if err != nil {
				return err
			}
			unit, err := tc.UnitByName(unitName)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return decodeLine(args[0], unit)
			}

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := decodeLine(line, unit); err != nil {
					fmt.Println(err)
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().String("unit", "C", "unit assumed for lines without a unit flag (C or F)")
	return cmd
}

func decodeLine(line string, unit tc.Unit) error {
	reading, err := proto.DecodeBytes([]byte(line), unit)
	if err != nil {
		return err
	}
	fmt.Printf("%q: %s\n", line, reading)
	return nil
}
