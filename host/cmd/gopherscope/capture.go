package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gopherscope/core"
	"gopherscope/host/export"
	"gopherscope/host/render"
	"gopherscope/host/scope"
	"gopherscope/protocol"
)

var (
	capturePins  []uint
	captureRate  uint32
	captureKind  string
	captureCSV   string
	captureCBOR  string
	capturePNG   string
	captureTitle string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Configure channels and capture one burst",
	Long: `Reset the device's pins, enable the requested channels, run one burst
and write the result.

Examples:
  gopherscope capture -p /dev/ttyACM0 --pins 2,3 --rate 20000 --csv out.csv
  gopherscope capture -u ws://127.0.0.1:8765/scope --pins 28 --png trace.png`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().UintSliceVar(&capturePins, "pins", nil, "Pins to enable, in channel order")
	captureCmd.Flags().Uint32Var(&captureRate, "rate", 0, "Burst sample rate in Hz")
	captureCmd.Flags().StringVar(&captureKind, "kind", "", "Sample kind: analog or digital")
	captureCmd.Flags().StringVar(&captureCSV, "csv", "", "Write samples as CSV")
	captureCmd.Flags().StringVar(&captureCBOR, "cbor", "", "Write a CBOR capture file")
	captureCmd.Flags().StringVar(&capturePNG, "png", "", "Plot the capture to a PNG file")
	captureCmd.Flags().StringVar(&captureTitle, "title", "", "Plot title")
}

// channelFlags merges --pins, --rate and --kind into cfg
func channelFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("pins") {
		pins, err := toPins(capturePins)
		if err != nil {
			return err
		}
		cfg.Channels = pins
	}
	if flags.Changed("rate") {
		cfg.RateHz = captureRate
	}
	if flags.Changed("kind") {
		if _, err := protocol.ParseSampleKind(captureKind); err != nil {
			return err
		}
		cfg.Kind = captureKind
	}
	if len(cfg.Channels) > core.MaxChannels {
		return fmt.Errorf("at most %d pins can be enabled", core.MaxChannels)
	}
	return nil
}

func toPins(in []uint) ([]uint8, error) {
	out := make([]uint8, 0, len(in))
	for _, p := range in {
		if p > 255 {
			return nil, fmt.Errorf("pin %d out of range", p)
		}
		out = append(out, uint8(p))
	}
	return out, nil
}

func runCapture(cmd *cobra.Command, args []string) error {
	if err := channelFlags(cmd); err != nil {
		return err
	}
	out := cfg.Output
	if cmd.Flags().Changed("csv") {
		out.CSV = captureCSV
	}
	if cmd.Flags().Changed("cbor") {
		out.CBOR = captureCBOR
	}
	if cmd.Flags().Changed("png") {
		out.PNG = capturePNG
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, _, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if len(cfg.Channels) > 0 {
		if err := c.Configure(cfg.Channels, cfg.RateHz); err != nil {
			return err
		}
	}

	log.Info().Uints8("pins", cfg.Channels).Uint32("rate_hz", cfg.RateHz).Msg("capturing")
	capt, err := c.Burst(ctx, cfg.SampleKind())
	if err != nil {
		return fmt.Errorf("burst: %w", err)
	}
	capt.Pins = cfg.Channels
	series := capt.Series(cfg.Calibration)
	printSummary(cmd, capt, series)

	return writeOutputs(capt, series, out.CSV, out.CBOR, out.PNG, out.Width, out.Height)
}

func writeOutputs(capt *scope.Capture, series *scope.Series, csvPath, cborPath, pngPath string, width, height int) error {
	if csvPath != "" {
		if err := export.SaveCSV(csvPath, series); err != nil {
			return err
		}
		log.Info().Str("file", csvPath).Msg("wrote csv")
	}
	if cborPath != "" {
		f := export.NewCaptureFile(capt, cfg.Calibration, cfg.RateHz, time.Now())
		if err := export.SaveCBOR(cborPath, f); err != nil {
			return err
		}
		log.Info().Str("file", cborPath).Msg("wrote capture file")
	}
	if pngPath != "" {
		d := render.NewImageDisplay(width, height)
		if err := render.Plot(d, series, render.Options{Title: captureTitle}); err != nil {
			return err
		}
		if err := d.SavePNG(pngPath); err != nil {
			return err
		}
		log.Info().Str("file", pngPath).Msg("wrote plot")
	}
	return nil
}

func printSummary(cmd *cobra.Command, capt *scope.Capture, s *scope.Series) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d samples in %v\n", len(s.Raw), capt.Duration)
	for _, ch := range s.Split() {
		if len(ch.Volts) == 0 {
			continue
		}
		lo, hi, sum := ch.Volts[0], ch.Volts[0], 0.0
		for _, v := range ch.Volts {
			lo, hi = min(lo, v), max(hi, v)
			sum += v
		}
		label := fmt.Sprintf("ch%d", ch.Index)
		if ch.Index < len(s.Pins) {
			label = fmt.Sprintf("P%d", ch.Pin)
		}
		fmt.Fprintf(w, "  %-4s n=%-5d min=%.3fV max=%.3fV mean=%.3fV\n",
			label, len(ch.Volts), lo, hi, sum/float64(len(ch.Volts)))
	}
}
