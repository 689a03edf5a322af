package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gopherscope/host/sim"
)

var (
	simListen string
	simNoise  float64
	simSeed   int64
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Serve a simulated device over WebSocket",
	Long: `Run the device firmware on this machine against a synthetic signal
source (the nRF52832 pin catalog, one tone per channel) and serve it over
WebSocket. Every connection gets its own device.

Example:
  gopherscope sim --listen 127.0.0.1:8765
  gopherscope capture -u ws://127.0.0.1:8765/scope --pins 2,3 --png trace.png`,
	RunE: runSim,
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().StringVar(&simListen, "listen", "", "Listen address (default from config, 127.0.0.1:8765)")
	simCmd.Flags().Float64Var(&simNoise, "noise", 0, "Noise as a fraction of full scale")
	simCmd.Flags().Int64Var(&simSeed, "seed", time.Now().UnixNano(), "Noise seed")
}

func runSim(cmd *cobra.Command, args []string) error {
	sc := cfg.Sim
	if cmd.Flags().Changed("listen") {
		sc.Listen = simListen
	}
	if cmd.Flags().Changed("noise") {
		sc.Noise = simNoise
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := sim.NewServer(sim.Options{
		Signal:       sim.SignalOptions{Tones: sc.Tones, Noise: sc.Noise, Seed: simSeed},
		BurstSamples: sc.BurstSamples,
		Logger:       log.Logger,
	})
	return srv.ListenAndServe(ctx, sc.Listen, sc.Path)
}
