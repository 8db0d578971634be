package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethgrid/pester"

	"github.com/miku/sichel"
)

func worker(ctx context.Context, timeout time.Duration, queue, out chan string, wg *sync.WaitGroup, logger zerolog.Logger) {
	defer wg.Done()
	for endpoint := range queue {
		hc := pester.New()
		hc.Timeout = timeout
		hc.Backoff = pester.ExponentialBackoff

		client := sichel.NewClientDoer(endpoint, hc)
		client.Logger = logger

		cctx, cancel := context.WithTimeout(ctx, 5*timeout)
		info, err := client.About(cctx)
		cancel()
		client.Close()
		if err != nil {
			logger.Warn().Str("endpoint", endpoint).Err(err).Msg("failed")
			continue
		}
		b, err := json.Marshal(info)
		if err != nil {
			logger.Fatal().Err(err).Msg("marshal failed")
		}
		out <- string(b)
		logger.Debug().Str("endpoint", endpoint).Msg("done")
	}
}

func writer(in chan string, done chan bool) {
	for s := range in {
		fmt.Println(s)
	}
	done <- true
}

func main() {
	workers := flag.Int("w", 8, "requests in parallel")
	timeout := flag.Duration("timeout", 60*time.Second, "per request timeout")
	verbose := flag.Bool("verbose", false, "be verbose")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	var reader io.Reader = os.Stdin
	if flag.NArg() > 0 {
		file, err := os.Open(flag.Arg(0))
		if err != nil {
			logger.Fatal().Err(err).Msg("open failed")
		}
		defer file.Close()
		reader = file
	}

	queue := make(chan string)
	out := make(chan string)
	done := make(chan bool)
	var wg sync.WaitGroup

	go writer(out, done)
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go worker(context.Background(), *timeout, queue, out, &wg, logger)
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queue <- line
	}
	if err := scanner.Err(); err != nil {
		logger.Fatal().Err(err).Msg("read failed")
	}
	close(queue)
	wg.Wait()
	close(out)
	<-done
}
