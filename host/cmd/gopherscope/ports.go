package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gopherscope/host/serial"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.ListPorts()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(ports) == 0 {
			fmt.Fprintln(w, "No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(w, p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
