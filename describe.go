package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"photoDetails/config"
	"photoDetails/details"
	"photoDetails/metadata"
)

type fileCard struct {
	details.DisplayRecord
	Size  string `json:"size"`
	Bytes int64  `json:"bytes"`
}

// describeFile resolves one local file and prints its card, then the
// backfilled location if it arrives within wait.
func describeFile(w io.Writer, cfg *config.Config, log logrus.FieldLogger, path string, wait time.Duration, asJSON bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	name := filepath.Base(path)
	head := payload
	if len(head) > 512 {
		head = head[:512]
	}
	sel, err := details.NewSelection(name, metadata.DetectContentType(name, head), payload, info.ModTime())
	if errors.Is(err, details.ErrInvalidSelection) {
		return errors.New(details.RejectionMessage)
	}
	if err != nil {
		return err
	}

	locator, _ := newLocator(cfg, log, false)
	session := details.NewSession(newResolver(cfg, log, locator), log)
	defer session.Close()

	rec, settled := session.Select(context.Background(), sel)
	card := fileCard{DisplayRecord: rec, Size: humanize.Bytes(uint64(info.Size())), Bytes: info.Size()}
	if err := printCard(w, card, asJSON); err != nil {
		return err
	}
	if !rec.LocationPending {
		return nil
	}

	select {
	case <-settled:
	case <-time.After(wait):
		log.WithField("wait", wait).Debug("no location fallback in time")
		return nil
	}
	rec, _ = session.Current()
	if rec.LocationSource != details.LocationSourceDevice {
		return nil
	}
	if asJSON {
		card.DisplayRecord = rec
		return printCard(w, card, true)
	}
	_, err = fmt.Fprintf(w, "%-12s%s\n", "Location:", rec.DisplayLocation+" (device)")
	return err
}

func printCard(w io.Writer, c fileCard, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(c)
	}
	lines := [][2]string{
		{"File:", c.FileName},
		{"Size:", c.Size},
		{"Date Taken:", c.DisplayDate},
		{"Location:", c.DisplayLocation},
	}
	if c.Camera != "" {
		lines = append(lines, [2]string{"Camera:", c.Camera})
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-12s%s\n", l[0], l[1]); err != nil {
			return err
		}
	}
	return nil
}
