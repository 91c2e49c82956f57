// Transfers a file through simulated QR code displays and cameras.
package main

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/anacrolix/tagflag"
	"github.com/netsys-lab/optics/api"
	"github.com/netsys-lab/optics/config"
	"github.com/netsys-lab/optics/dataplane"
	"github.com/netsys-lab/optics/framemetrics"
	"github.com/netsys-lab/optics/optics"
	"github.com/netsys-lab/optics/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// A negative LossRate or Seed, a zero PacketSize and empty strings leave the
// config file setting in place. Negative seeds can only be set in the file.
var flags = struct {
	Config      string
	InFile      string
	OutFile     string
	DumpDir     string
	LossRate    float64
	Seed        int64
	PacketSize  int
	MetricsAddr string
	tagflag.StartPos
}{
	LossRate: -1,
	Seed:     -1,
}

func main() {
	if err := mainErr(); err != nil {
		log.Errorf("error in main: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flags.Config != "" {
		var err error
		cfg, err = config.Load(flags.Config)
		if err != nil {
			return nil, err
		}
	}
	if flags.LossRate >= 0 {
		cfg.LossRate = flags.LossRate
	}
	if flags.Seed >= 0 {
		cfg.Seed = flags.Seed
	}
	if flags.PacketSize > 0 {
		cfg.PacketSize = uint32(flags.PacketSize)
	}
	if flags.MetricsAddr != "" {
		cfg.MetricsAddr = flags.MetricsAddr
	}
	return cfg, cfg.Validate()
}

func verifyTransfer(result, file []byte) error {
	got, want := md5.Sum(result), md5.Sum(file)
	log.Infof("Got %x md5 for received file compared to %x md5 for local", got, want)
	if got != want {
		return fmt.Errorf("received file md5 %x differs from local %x", got, want)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Infof("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("Metrics server stopped: %v", err)
	}
}

func mainErr() error {
	tagflag.Parse(&flags)

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.SetLevel(cfg.Level())

	if flags.InFile == "" {
		return fmt.Errorf("no input file given")
	}
	file, err := os.ReadFile(flags.InFile)
	if err != nil {
		return err
	}

	codec, err := optics.NewQRCodec(cfg.QRCodecOptions())
	if err != nil {
		return err
	}
	enc, err := api.FromBytes(file, codec, &api.EncoderOptions{PacketSize: cfg.PacketSize})
	if err != nil {
		return err
	}
	dec := api.NewDecoder(codec, &api.DecoderOptions{
		MaxRequestIndices: cfg.MaxRequestIndices,
		MaxPayloadSize:    cfg.MaxPayloadSize,
	})

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := framemetrics.Register(reg, "sender", enc.Metrics()); err != nil {
			return err
		}
		if err := framemetrics.Register(reg, "receiver", dec.Metrics()); err != nil {
			return err
		}
		go serveMetrics(cfg.MetricsAddr, reg)
	}

	maxRounds := cfg.MaxRounds
	if maxRounds == 0 {
		maxRounds = api.RoundBudget(enc.PacketCount(), cfg.LossRate)
	}
	opts := &api.LoopbackOptions{
		Forward:   dataplane.NewLossyChannel(cfg.LossRate, cfg.Seed),
		Backward:  dataplane.NewLossyChannel(cfg.LossRate, cfg.Seed+1),
		MaxRounds: maxRounds,
	}
	var dumper *frameDumper
	if flags.DumpDir != "" {
		dumper, err = newFrameDumper(flags.DumpDir)
		if err != nil {
			return err
		}
		opts.OnFrame = dumper.OnFrame
	}

	log.Infof("Sending %s in %d packets of %d bytes, loss rate %.2f",
		utils.ByteCountSI(int64(len(file))), enc.PacketCount(), enc.PacketSize(), cfg.LossRate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	stats, err := api.Loopback(ctx, enc, dec, opts)
	if dumper != nil {
		log.Infof("Wrote %d frames to %s", dumper.Written, flags.DumpDir)
		if dumper.Err != nil {
			log.Warnf("Failed to dump frames: %v", dumper.Err)
		}
	}
	if err != nil {
		return err
	}
	log.Infof("Transfer done: %s", stats)

	result, ok := dec.Result()
	if !ok {
		return fmt.Errorf("receiver has no result in state %s", dec.State())
	}
	if err := verifyTransfer(result, file); err != nil {
		return err
	}

	if flags.OutFile != "" {
		if err := os.WriteFile(flags.OutFile, result, 0o644); err != nil {
			return err
		}
	}
	return nil
}
