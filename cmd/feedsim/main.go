package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/sideline/internal/feedsim"
)

// Default configuration constants.
const (
	defaultAddr       = ":9090"
	defaultEvent      = "2025nyro"
	defaultMatchCount = 12
	defaultStep       = 15 * time.Second
)

func main() {
	var (
		addr       = flag.String("addr", defaultAddr, "Listen address for the fake feeds")
		event      = flag.String("event", defaultEvent, "Event key to simulate")
		teams      = flag.String("teams", "", "Comma-separated team numbers (at least 6)")
		matchCount = flag.Int("matches", defaultMatchCount, "Number of qualification matches")
		step       = flag.Duration("step", defaultStep, "Interval between schedule advances")
	)
	flag.Parse()

	var teamList []string
	if *teams != "" {
		teamList = strings.Split(*teams, ",")
	}

	sim := feedsim.New(*event, teamList, *matchCount)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sim.Run(ctx.Done(), *step)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           sim.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("feedsim server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
