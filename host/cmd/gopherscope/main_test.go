package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"gopherscope/host/sim"
)

func TestToPins(t *testing.T) {
	got, err := toPins([]uint{2, 31, 255})
	if err != nil || len(got) != 3 || got[2] != 255 {
		t.Errorf("expected [2 31 255], got %v (%v)", got, err)
	}
	if _, err := toPins([]uint{256}); err == nil {
		t.Error("pin 256 accepted")
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("gopherscope %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCaptureAndConvertAgainstSim(t *testing.T) {
	srv := sim.NewServer(sim.Options{
		Signal:       sim.SignalOptions{Tones: []float64{100, 300}},
		BurstSamples: 64,
		Logger:       zerolog.New(zerolog.NewTestWriter(t)),
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/scope"

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "c.csv")
	cborPath := filepath.Join(dir, "c.cbor")
	pngPath := filepath.Join(dir, "c.png")

	out := execute(t, "capture", "-u", url, "--pins", "2,3", "--rate", "20000",
		"--csv", csvPath, "--cbor", cborPath, "--png", pngPath)
	if !strings.Contains(out, "64 samples") || !strings.Contains(out, "P3") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	for _, p := range []string{csvPath, cborPath, pngPath} {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Errorf("%s not written: %v", p, err)
		}
	}

	again := filepath.Join(dir, "again.csv")
	execute(t, "convert", cborPath, "--csv", again)
	a, _ := os.ReadFile(csvPath)
	b, _ := os.ReadFile(again)
	if !bytes.Equal(a, b) {
		t.Error("converted CSV differs from the original export")
	}
}
