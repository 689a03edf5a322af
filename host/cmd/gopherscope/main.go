// Gopherscope drives a gopherscope device: burst captures to CSV, CBOR and
// PNG, a live terminal monitor, port discovery and a simulated device.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
