package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/timgluz/luftspiegel/airquality"
	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/measurement"
)

type decodeCommand struct {
	Address   string `short:"a" long:"address" description:"Source address, required for data format 6 frames"`
	Timestamp string `short:"t" long:"timestamp" description:"Reception time as epoch seconds or ISO 8601 (default: now)"`

	Args struct {
		Frame string `positional-arg-name:"frame" required:"yes" description:"Frame bytes as hex"`
	} `positional-args:"yes"`
}

type decodeOutput struct {
	*measurement.Snapshot
	Score    airquality.Score `json:"score"`
	Rejected []string         `json:"rejected,omitempty"`
}

func (c *decodeCommand) Execute(_ []string) error {
	frame, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(c.Args.Frame), "0x"))
	if err != nil {
		return fmt.Errorf("frame is not hex: %w", err)
	}

	ts := measurement.CurrentEpoch()
	if c.Timestamp != "" {
		if ts, err = measurement.ParseTimestamp(c.Timestamp); err != nil {
			return err
		}
	}

	snap, err := decoder.DecodeFrame(frame, c.Address, ts)
	if err != nil {
		return err
	}

	out := decodeOutput{Snapshot: snap, Score: airquality.FromSnapshot(snap)}
	for _, rejection := range snap.Rejected {
		out.Rejected = append(out.Rejected, rejection.String())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
