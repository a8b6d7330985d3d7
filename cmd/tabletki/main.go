package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samvad-hq/tabletki-watch/internal/app"
	"github.com/samvad-hq/tabletki-watch/internal/config"
	"github.com/samvad-hq/tabletki-watch/internal/logger"
	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"
	"github.com/spf13/pflag"
)

const usage = `usage: tabletki [--token T] [--proxy URL] <command> [flags]

commands:
  locate                                   resolve the region of this IP
  search <term> [--translit V] [--type T] [--location ID]
  card --name NAME --code CODE [--no-content-plus]
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "tabletki: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := pflag.NewFlagSet("tabletki", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	token := global.String("token", "", "app api token (defaults to APP_API_TOKEN)")
	proxy := global.String("proxy", "", "proxy url for outgoing requests")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := global.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *token != "" {
		cfg.AppAPIToken = strings.TrimSpace(*token)
	}
	if *proxy != "" {
		cfg.HTTPProxy = *proxy
	}
	if cfg.AppAPIToken == "" {
		return fmt.Errorf("app api token is required (--token or APP_API_TOKEN)")
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	client := tabletki.NewClient(cfg.AppAPIToken, app.ClientOptions(cfg, app.DeviceFromConfig(cfg))...)
	defer client.Close()

	var result any
	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "locate":
		result, err = client.LocationByIP(ctx, tabletki.LocateParams{})
	case "search":
		result, err = runSearch(ctx, client, cmdArgs, stderr)
	case "card":
		result, err = runCard(ctx, client, cmdArgs, stderr)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

func runSearch(ctx context.Context, client *tabletki.Client, args []string, stderr io.Writer) (tabletki.SearchHintsResult, error) {
	fs := pflag.NewFlagSet("search", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	translit := fs.String("translit", "", `transliterate the term ("1", "true" or "True")`)
	typ := fs.String("type", tabletki.DefaultSearchType, "result type selector")
	location := fs.String("location", "", "location id for this call")
	if err := fs.Parse(args); err != nil {
		return tabletki.SearchHintsResult{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	term := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(term) == "" {
		return tabletki.SearchHintsResult{}, fmt.Errorf("%w: search needs a term", errUsage)
	}

	return client.SearchHints(ctx, tabletki.SearchParams{
		Term:          term,
		Transliterate: tabletki.ParseTransliterate(*translit),
		Type:          *typ,
		Location:      *location,
	})
}

func runCard(ctx context.Context, client *tabletki.Client, args []string, stderr io.Writer) (tabletki.ProductCard, error) {
	fs := pflag.NewFlagSet("card", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "product url name")
	code := fs.String("code", "", "goods int code")
	noContentPlus := fs.Bool("no-content-plus", false, "request the card without enriched content")
	if err := fs.Parse(args); err != nil {
		return tabletki.ProductCard{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	if *name == "" || *code == "" {
		return tabletki.ProductCard{}, fmt.Errorf("%w: card needs --name and --code", errUsage)
	}

	return client.ProductCard(ctx, tabletki.ProductCardParams{
		Name:            *name,
		GoodsIntCode:    *code,
		SkipContentPlus: *noContentPlus,
	})
}
