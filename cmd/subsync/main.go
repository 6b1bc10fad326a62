package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/lkimju1/subsync/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "subsync",
		Usage: "turn proxy subscriptions into daemon configs and keep them in sync",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "conf-dir",
				Aliases: []string{"c"},
				Usage:   "settings and log directory",
				Value:   defaultConfDir(),
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "daemon config file or directory, used as a discovery hint",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "external controller url (persisted)",
			},
			&cli.StringFlag{
				Name:  "secret",
				Usage: "external controller secret (persisted)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level: debug, info, warn, error",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "locate",
				Usage:  "show the discovered daemon config and profile list",
				Action: runLocate,
			},
			{
				Name:    "convert",
				Aliases: []string{"c"},
				Usage:   "fetch a subscription and merge it into a daemon config",
				Action:  runConvert,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "subscription url or local file (persisted)"},
					&cli.StringFlag{Name: "base", Aliases: []string{"b"}, Usage: "base config, defaults to the discovered daemon config"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, defaults to the base config"},
					&cli.BoolFlag{Name: "prune-stale", Usage: "drop group members that are neither groups nor new proxies"},
					&cli.BoolFlag{Name: "allow-lan", Usage: "listen on all interfaces"},
					&cli.StringFlag{Name: "country-db", Usage: "Country.mmdb used to prefix proxy names with country codes"},
					&cli.BoolFlag{Name: "reload", Aliases: []string{"r"}, Usage: "ask the daemon to reload the written config"},
				},
			},
			{
				Name:   "profiles",
				Usage:  "list mihomo-party profiles",
				Action: runProfiles,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "list", Usage: "profile.yaml path, discovered when empty"},
				},
			},
			{
				Name:    "update",
				Aliases: []string{"u"},
				Usage:   "refresh mihomo-party profiles from their subscription urls",
				Action:  runUpdate,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "list", Usage: "profile.yaml path, discovered when empty"},
					&cli.StringSliceFlag{Name: "id", Usage: "profile id to update, repeatable"},
					&cli.BoolFlag{Name: "all", Usage: "update every remote profile"},
					&cli.StringFlag{Name: "add", Usage: "add a remote profile with this url before updating"},
					&cli.StringFlag{Name: "name", Usage: "name for --add"},
				},
			},
			{
				Name:   "providers",
				Usage:  "list proxy providers, optionally refreshing them through the controller",
				Action: runProviders,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "live", Usage: "query the running daemon instead of the config file"},
					&cli.StringSliceFlag{Name: "refresh", Usage: "provider name to refresh, repeatable"},
				},
			},
			{
				Name:   "import-v2rayn",
				Usage:  "merge the proxies of a local v2rayN install into a daemon config",
				Action: runImportV2rayN,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "v2rayn-home", Aliases: []string{"v"}, Usage: "v2rayN home path", Required: true},
					&cli.StringFlag{Name: "sub-id", Usage: "only import this v2rayN subscription group"},
					&cli.StringFlag{Name: "base", Aliases: []string{"b"}, Usage: "base config, defaults to the discovered daemon config"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, defaults to the base config"},
					&cli.BoolFlag{Name: "prune-stale", Usage: "drop group members that are neither groups nor new proxies"},
				},
			},
			{
				Name:   "geodata",
				Usage:  "download missing or outdated geo databases next to the daemon config",
				Action: runGeodata,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "target directory, defaults to the daemon config directory"},
				},
			},
			{
				Name:  "sysproxy",
				Usage: "point the system proxy at the daemon (windows)",
				Subcommands: []*cli.Command{
					{Name: "on", Action: runSysproxyOn},
					{Name: "off", Action: runSysproxyOff},
				},
			},
			{
				Name:   "status",
				Usage:  "show the last sync, the daemon version and its listener",
				Action: runStatus,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		exitErr(err)
	}
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func defaultConfDir() string {
	dir, err := config.DefaultDir()
	if err == nil {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".subsync"
	}
	return filepath.Join(home, ".subsync")
}
