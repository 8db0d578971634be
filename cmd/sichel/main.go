package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/sethgrid/pester"
	"gopkg.in/yaml.v3"

	"github.com/miku/sichel"
)

// Config holds optional defaults, read from ~/.sichel.yaml.
type Config struct {
	Prefix  string `yaml:"prefix"`
	Retries int    `yaml:"retries"`
	Timeout string `yaml:"timeout"`
}

func loadConfig() Config {
	cfg := Config{Prefix: "oai_dc", Timeout: "60s"}
	home, err := homedir.Dir()
	if err != nil {
		return cfg
	}
	b, err := os.ReadFile(filepath.Join(home, ".sichel.yaml"))
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(b, &cfg)
	return cfg
}

func (c Config) timeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// harvestWindow streams all records of one request to w, one record element
// per line. An empty result set is not an error.
func harvestWindow(ctx context.Context, client *sichel.Client, req sichel.Request, w io.Writer, ignoreDeleted bool) error {
	var options []sichel.ListOption
	if ignoreDeleted {
		options = append(options, sichel.IgnoreDeleted())
	}
	it := client.ListRecords(ctx, req, options...)
	for {
		record, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, sichel.OAIError{Code: "noRecordsMatch"}) {
			return nil
		}
		if err != nil {
			return err
		}
		b, err := xml.Marshal(record)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
}

// earliest asks the repository for its earliest datestamp, with a safe
// fallback for servers that do not report one.
func earliest(ctx context.Context, client *sichel.Client) time.Time {
	fallback := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	id, err := client.Identify(ctx)
	if err != nil || len(id.EarliestDatestamp) < 10 {
		return fallback
	}
	t, err := time.Parse("2006-01-02", id.EarliestDatestamp[:10])
	if err != nil {
		return fallback
	}
	return t
}

func main() {
	cfg := loadConfig()

	prefix := flag.String("prefix", cfg.Prefix, "OAI metadataPrefix")
	set := flag.String("set", "", "OAI set")
	from := flag.String("from", "", "OAI from (YYYY-MM-DD)")
	until := flag.String("until", "", "OAI until (YYYY-MM-DD)")
	window := flag.String("window", "", "split the range into daily, weekly or monthly requests")
	output := flag.String("o", "", "output file, gzip compressed if it ends in .gz, default stdout")
	root := flag.String("root", "", "name of artificial root element tag to use")
	retries := flag.Int("retries", cfg.Retries, "resends on a retryable HTTP status")
	timeout := flag.Duration("timeout", cfg.timeout(), "per request timeout")
	ignoreDeleted := flag.Bool("ignore-deleted", false, "skip records flagged as deleted")
	showRepoInfo := flag.Bool("id", false, "show repository info")
	showVersion := flag.Bool("v", false, "prints current program version")
	verbose := flag.Bool("verbose", false, "more output")

	flag.Parse()

	if *showVersion {
		fmt.Println(sichel.Version)
		os.Exit(0)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	if flag.NArg() == 0 {
		logger.Fatal().Msg("endpoint URL required")
	}
	endpoint := flag.Arg(0)

	hc := pester.New()
	hc.Timeout = *timeout
	hc.MaxRetries = 3
	hc.Backoff = pester.ExponentialBackoff

	client := sichel.NewClientDoer(endpoint, hc)
	client.MaxRetries = *retries
	client.Logger = logger
	defer client.Close()

	ctx := context.Background()

	if *showRepoInfo {
		info, err := client.About(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("identify failed")
		}
		b, err := json.Marshal(info)
		if err != nil {
			logger.Fatal().Err(err).Msg("marshal failed")
		}
		fmt.Println(string(b))
		os.Exit(0)
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			logger.Fatal().Err(err).Msg("create failed")
		}
		defer file.Close()
		w = file
		if strings.HasSuffix(*output, ".gz") {
			gz := gzip.NewWriter(file)
			defer gz.Close()
			w = gz
		}
	}

	if *root != "" {
		fmt.Fprintf(w, "<%s>\n", *root)
	}

	var requests []sichel.Request
	switch {
	case *window != "":
		fromDate := earliest(ctx, client)
		if *from != "" {
			t, err := time.Parse("2006-01-02", *from)
			if err != nil {
				logger.Fatal().Err(err).Msg("bad from date")
			}
			fromDate = t
		}
		untilDate := time.Now()
		if *until != "" {
			t, err := time.Parse("2006-01-02", *until)
			if err != nil {
				logger.Fatal().Err(err).Msg("bad until date")
			}
			untilDate = t
		}
		span := sichel.Window{From: fromDate, Until: untilDate}
		var ws []sichel.Window
		var err error
		switch *window {
		case "daily":
			ws, err = span.Daily()
		case "weekly":
			ws, err = span.Weekly()
		case "monthly":
			ws, err = span.Monthly()
		default:
			logger.Fatal().Str("window", *window).Msg("unsupported window")
		}
		if err != nil {
			logger.Fatal().Err(err).Msg("window split failed")
		}
		for _, win := range ws {
			requests = append(requests, sichel.Request{
				Prefix: *prefix,
				Set:    *set,
				From:   win.From.Format("2006-01-02"),
				Until:  win.Until.Format("2006-01-02"),
			})
		}
	default:
		requests = append(requests, sichel.Request{
			Prefix: *prefix,
			Set:    *set,
			From:   *from,
			Until:  *until,
		})
	}

	for _, req := range requests {
		logger.Debug().Str("from", req.From).Str("until", req.Until).Msg("window")
		if err := harvestWindow(ctx, client, req, w, *ignoreDeleted); err != nil {
			logger.Fatal().Err(err).Msg("harvest failed")
		}
	}

	if *root != "" {
		fmt.Fprintf(w, "</%s>\n", *root)
	}
}
