package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/timgluz/luftspiegel/device"
)

type devicesCommand struct {
	APIEndpoint    string        `long:"api-endpoint" env:"SENSORCTL_API_ENDPOINT" required:"yes" description:"Base URL of the sensor API"`
	APIKey         string        `long:"api-key" env:"SENSORCTL_API_KEY" required:"yes" description:"Bearer token of the sensor API"`
	RequestTimeout time.Duration `long:"timeout" default:"10s" description:"Timeout of one API request"`
	PageSize       int           `long:"page-size" default:"50" description:"Devices requested per page"`
}

func (c *devicesCommand) Execute(_ []string) error {
	httpClient := &http.Client{Timeout: c.RequestTimeout}

	deviceRepository := device.NewAPIRepository(httpClient, c.APIEndpoint, c.APIKey)
	if !deviceRepository.IsReady() {
		return fmt.Errorf("device repository is not ready")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deviceCh, errCh := device.StreamDevices(ctx, deviceRepository, 0, c.PageSize)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME")

	var deviceCount int
	for d := range deviceCh {
		fmt.Fprintf(w, "%s\t%s\n", d.Address, d.Name)
		deviceCount++
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("error iterating devices: %w", err)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d devices\n", deviceCount)
	return nil
}
