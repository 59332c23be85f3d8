package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/task"
)

type syncCommand struct {
	Address string `short:"a" long:"address" required:"yes" description:"Device address"`
	Name    string `short:"n" long:"name" description:"Device name used when the device is not registered yet (default: Ruuvi and the last address octets)"`
	Sensor  string `short:"s" long:"sensor" default:"all" description:"Logged sensor of a legacy packet transfer (temperature, humidity, air_pressure, all)"`
	Records string `long:"records" description:"JSON file with an array of log records"`
	Packets string `long:"packets" description:"Text file with one hex encoded legacy log packet per line"`
}

func (c *syncCommand) Execute(_ []string) error {
	if (c.Records == "") == (c.Packets == "") {
		return fmt.Errorf("exactly one of --records and --packets is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := newLogger("sync")
	if err != nil {
		return err
	}

	s, err := openStores(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	m, _ := newMetrics(logger)
	synchronizer := task.NewLogSynchronizer(s.measurements, s.devices, m, logger)

	report, runErr := c.run(ctx, synchronizer)
	if report == nil {
		return runErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return runErr
}

func (c *syncCommand) run(ctx context.Context, synchronizer *task.LogSynchronizer) (*task.SyncReport, error) {
	if c.Records != "" {
		records, err := readRecords(c.Records)
		if err != nil {
			return nil, err
		}
		return synchronizer.Run(ctx, c.Address, c.Name, records)
	}

	packets, err := readPackets(c.Packets)
	if err != nil {
		return nil, err
	}
	return synchronizer.RunPackets(ctx, c.Address, c.Name, c.Sensor, packets)
}

func readRecords(path string) ([]decoder.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []decoder.Record
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode log records: %w", err)
	}
	return records, nil
}

func readPackets(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var packets [][]byte
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		packet, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: packet is not hex: %w", line, err)
		}
		packets = append(packets, packet)
	}
	return packets, scanner.Err()
}

type logRequestCommand struct {
	Address string `short:"a" long:"address" required:"yes" description:"Device address"`
	Sensor  string `short:"s" long:"sensor" default:"all" description:"Logged sensor (temperature, humidity, air_pressure, all)"`
}

// Execute prints the command that asks the device for everything newer than the stored samples.
func (c *logRequestCommand) Execute(_ []string) error {
	destination, err := decoder.LogDestination(c.Sensor)
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger, err := newLogger("log-request")
	if err != nil {
		return err
	}

	s, err := openStores(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	start, err := task.NewLogSynchronizer(s.measurements, s.devices, nil, logger).StartTimestamp(ctx, c.Address, c.Sensor)
	if err != nil {
		return err
	}

	fmt.Printf("%X\n", decoder.LogRequest(destination, measurement.CurrentEpoch(), start))
	return nil
}
