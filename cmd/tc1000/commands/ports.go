package commands

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ftl/tc1000/serial"
)

func PortsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List the serial ports that can be opened",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, _, cfg, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ports, err := listPorts(cfg.Serial.Match)
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Println("No serial ports detected.")
				return nil
			}

			details, err := serial.Details()
			if err != nil {
				log.Debugw("No port details available", "error", err)
			}
			for _, port := range ports {
				marker := " "
				if port == cfg.Serial.Port {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, serial.Describe(details, port))
			}
			return nil
		},
	}
	return cmd
}

func SetPortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-port [port]",
		Short: "Select the serial port you want to use",
		Long: "Set-port stores the preferred serial port in the configuration file. Without an argument,\n" +
			"you can pick one of the available ports.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, store, cfg, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			var port string
			if len(args) == 1 {
				port = args[0]
			} else {
				port, err = pickPort(cfg.Serial.Match)
				if err != nil {
					return err
				}
			}

			if err := store.SetPort(port); err != nil {
				return err
			}
			fmt.Printf("Using %s, stored in %s\n", port, store.File())
			return nil
		},
	}
	return cmd
}

func listPorts(match string) ([]string, error) {
	ports, err := serial.NewEnumerator(nil).ListPorts()
	if err != nil {
		return nil, err
	}
	return serial.PreferMatching(ports, match), nil
}

func pickPort(match string) (string, error) {
	ports, err := listPorts(match)
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports detected. Is the temperature controller connected?")
	}

	details, _ := serial.Details()
	items := make([]string, len(ports))
	for i, port := range ports {
		items[i] = serial.Describe(details, port).String()
	}

	prompt := promptui.Select{
		Label:     "Choose the serial port of the temperature controller",
		Items:     items,
		Templates: &promptui.SelectTemplates{},
	}

	i, _, err := prompt.Run()
	if err != nil {
		return "", errors.New("you didn't select anything")
	}

	return ports[i], nil
}
