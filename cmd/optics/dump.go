package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// frameDumper writes every displayed frame as PNG. The first write error is
// kept and later frames are skipped.
type frameDumper struct {
	dir     string
	Written int
	Err     error
}

func newFrameDumper(dir string) (*frameDumper, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &frameDumper{dir: dir}, nil
}

func (d *frameDumper) OnFrame(round int, fromSender bool, img image.Image) {
	if d.Err != nil {
		return
	}
	side := "rx"
	if fromSender {
		side = "tx"
	}
	name := filepath.Join(d.dir, fmt.Sprintf("%06d-%s.png", round, side))
	f, err := os.Create(name)
	if err != nil {
		d.Err = err
		return
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		d.Err = fmt.Errorf("encode %s: %w", name, err)
		return
	}
	if err := f.Close(); err != nil {
		d.Err = err
		return
	}
	d.Written++
}
