package main

import (
	"github.com/spf13/cobra"

	"gopherscope/host/export"
)

var convertCmd = &cobra.Command{
	Use:   "convert FILE.cbor",
	Short: "Re-export a saved capture file",
	Long: `Read a CBOR capture file written by 'capture --cbor' and write it again
as CSV and/or PNG using the calibration stored in the file.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&captureCSV, "csv", "", "Write samples as CSV")
	convertCmd.Flags().StringVar(&capturePNG, "png", "", "Plot the capture to a PNG file")
	convertCmd.Flags().StringVar(&captureTitle, "title", "", "Plot title")
}

func runConvert(cmd *cobra.Command, args []string) error {
	f, err := export.LoadCBOR(args[0])
	if err != nil {
		return err
	}
	capt := f.Capture()
	series := f.Series()
	printSummary(cmd, capt, series)
	return writeOutputs(capt, series, captureCSV, "", capturePNG, cfg.Output.Width, cfg.Output.Height)
}
