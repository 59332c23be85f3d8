// sensorctl decodes Ruuvi frames and logs, stores them and serves the stored series.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	LogLevel  string `long:"log-level" env:"SENSORCTL_LOG_LEVEL" default:"info" description:"Log level (debug, info, warn, error)"`
	LogFormat string `long:"log-format" env:"SENSORCTL_LOG_FORMAT" default:"pretty" choice:"text" choice:"json" choice:"pretty" description:"Log output format"`

	DSN     string `long:"db-dsn" env:"SENSORCTL_DB_DSN" description:"Postgres DSN; samples are kept in memory when empty"`
	Devices string `long:"devices" env:"SENSORCTL_DEVICES" description:"JSON file of {address, name} devices to seed the registry with"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.LongDescription = "Decodes Ruuvi sensor advertisements and history logs, stores the samples and serves plot series."

	mustAddCommand(parser, "decode", "Decode a manufacturer data frame",
		"Decodes one 24 byte frame given as hex and prints the snapshot with its air quality score.", &decodeCommand{})
	mustAddCommand(parser, "sync", "Store a device history log",
		"Decodes log records or raw legacy log packets and stores them as samples.", &syncCommand{})
	mustAddCommand(parser, "log-request", "Print the log read command for a device",
		"Prints the log read command that asks a device for the samples newer than the stored ones.", &logRequestCommand{})
	mustAddCommand(parser, "serve", "Serve the HTTP API",
		"Serves the advertisement, log sync, device and series API together with prometheus metrics.", &serveCommand{})
	mustAddCommand(parser, "listen", "Collect advertisements from a Ruuvi Gateway",
		"Subscribes to the MQTT topic of a Ruuvi Gateway and collects the relayed advertisements.", &listenCommand{})
	mustAddCommand(parser, "devices", "List the devices of a remote API",
		"Pages through the device registry of a running sensor API.", &devicesCommand{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func mustAddCommand(parser *flags.Parser, name, short, long string, data any) {
	if _, err := parser.AddCommand(name, short, long, data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register command %s: %v\n", name, err)
		os.Exit(1)
	}
}
