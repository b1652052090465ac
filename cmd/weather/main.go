// Command weather resolves the homepage weather and prints it.
//
// It reads the same config directory as the service. When proxy.url is set
// the proxy is tried first, exactly like the homepage client does. With
// -watch it re-resolves every resolver.refresh_interval until interrupted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/conditions"
	"github.com/kjstillabower/homepage-weather/internal/config"
	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/observability"
	"github.com/kjstillabower/homepage-weather/internal/service"
	"github.com/kjstillabower/homepage-weather/internal/validation"
)

type output struct {
	models.WeatherData
	Text string `json:"text"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("weather", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("config", ".", "directory containing config/ and .env")
	lang := fs.String("lang", "", "zh or en (default: resolver.default_lang)")
	provider := fs.String("provider", "", "provider to resolve (default: providers.primary)")
	timeout := fs.Duration("timeout", 60*time.Second, "deadline for each resolution")
	watch := fs.Bool("watch", false, "re-resolve every resolver.refresh_interval until interrupted")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadFrom(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = observability.FlushLogger(context.Background(), logger) }()

	l := cfg.DefaultLang
	if *lang != "" {
		if l, err = validation.ValidateLang(*lang); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
	}
	name := cfg.PrimaryProvider
	if *provider != "" {
		if name, err = validation.ValidateProvider(*provider, cfg.Providers()); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := service.Build(ctx, cfg, logger, service.BuildOptions{UseProxy: true})
	if err != nil {
		logger.Error("build resolvers", zap.Error(err))
		return 1
	}
	defer func() { _ = stack.Close() }()
	r := stack.Resolvers[name]

	resolveOnce := func() int {
		rctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		return report(rctx, stdout, stderr, r, l)
	}
	if !*watch {
		return resolveOnce()
	}

	resolveOnce()
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.RefreshInterval), func() { resolveOnce() }); err != nil {
		fmt.Fprintf(stderr, "schedule: %v\n", err)
		return 1
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return 0
}

type resolver interface {
	Resolve(ctx context.Context, lang models.Lang) (models.WeatherData, bool)
}

// report writes one resolution as indented JSON, or the unavailable label.
func report(ctx context.Context, stdout, stderr io.Writer, r resolver, l models.Lang) int {
	data, ok := r.Resolve(ctx, l)
	if !ok {
		fmt.Fprintln(stdout, "unavailable")
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{WeatherData: data, Text: conditions.Text(data.Condition, l)}); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}
