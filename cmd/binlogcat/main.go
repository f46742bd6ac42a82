// Command binlogcat dumps a binlog file as JSON lines, one event per
// line.
//
//	binlogcat binlog.000002
//	binlogcat -config cat.yaml -stats binlog.000002
//
// The optional YAML config mirrors binlog.Config:
//
//	table_map_cache_capacity: 1000
//	value_cache_capacity: 10000
//	statistics_enabled: true
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/replgate/binlog"
)

type eventLine struct {
	Type      string      `json:"type"`
	Timestamp uint32      `json:"timestamp"`
	ServerID  uint32      `json:"server_id"`
	NextPos   uint32      `json:"next_pos"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	stats := flag.Bool("stats", false, "print a statistics summary to stderr at the end")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: binlogcat [-config file] [-stats] <binlog file>")
		os.Exit(2)
	}

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := binlog.Config{StatisticsEnabled: *stats}
	if *configPath != "" {
		buf, err := os.ReadFile(*configPath)
		if err != nil {
			logrus.WithError(err).Fatal("reading config")
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			logrus.WithError(err).Fatal("parsing config")
		}
		cfg.StatisticsEnabled = cfg.StatisticsEnabled || *stats
	}

	d, err := binlog.OpenFile(flag.Arg(0), cfg)
	if err != nil {
		logrus.WithError(err).Fatal("opening binlog file")
	}

	enc := json.NewEncoder(os.Stdout)
	for {
		e, err := d.NextEvent()
		if err != nil {
			logrus.WithError(err).Fatal("decoding")
		}
		if e == nil {
			break
		}
		line := eventLine{
			Type:      e.Header.EventType.String(),
			Timestamp: e.Header.Timestamp,
			ServerID:  e.Header.ServerID,
			NextPos:   e.Header.NextPos,
		}
		if e.Err != nil {
			line.Error = e.Err.Error()
		} else {
			line.Data = e.Data
		}
		if err := enc.Encode(line); err != nil {
			logrus.WithError(err).Fatal("writing output")
		}
	}

	if *stats {
		fmt.Fprint(os.Stderr, d.Statistics().Summary())
		fmt.Fprintf(os.Stderr, "gtid set: %s\n", d.GtidSet())
	}
}
