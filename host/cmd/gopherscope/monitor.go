package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"gopherscope/host/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch continuous sampling live",
	Long: `Put the device in continuous mode and show the latest, minimum and
maximum voltage of every channel with a short history.

Keys: p pause, r reset statistics, q quit.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().UintSliceVar(&capturePins, "pins", nil, "Pins to enable, in channel order")
	monitorCmd.Flags().StringVar(&captureKind, "kind", "", "Sample kind: analog or digital")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := channelFlags(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, info, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if len(cfg.Channels) > 0 {
		if err := c.Configure(cfg.Channels, 0); err != nil {
			return err
		}
	}

	m := monitor.New(info, cfg.Channels, cfg.Calibration)
	return monitor.Run(ctx, c, cfg.SampleKind(), m)
}
