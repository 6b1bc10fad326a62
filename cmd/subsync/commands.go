package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lkimju1/subsync/internal/confgen"
	"github.com/lkimju1/subsync/internal/geodata"
	"github.com/lkimju1/subsync/internal/locate"
	"github.com/lkimju1/subsync/internal/profiles"
	"github.com/lkimju1/subsync/internal/sharelink"
	"github.com/lkimju1/subsync/internal/state"
	"github.com/lkimju1/subsync/internal/syncer"
	"github.com/lkimju1/subsync/internal/sysproxy"
	"github.com/lkimju1/subsync/internal/v2raynimport"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	// updateSpacing paces consecutive profile fetches.
	updateSpacing = 500 * time.Millisecond
)

func runLocate(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	found, ok := s.daemonConfig(c)
	if ok {
		fmt.Printf("config:       %s (modified %s)\n", found.Path, found.ModTime.Format(timeLayout))
	} else {
		fmt.Println("config:       not found")
	}
	hint := ""
	if ok {
		hint = found.Path
	}
	if list, ok := locate.ProfileList(hint, s.env); ok {
		fmt.Printf("profile list: %s (modified %s)\n", list.Path, list.ModTime.Format(timeLayout))
	} else {
		fmt.Println("profile list: not found")
	}
	if s.env.Pinned() {
		fmt.Println("(pinned by environment)")
	}
	return nil
}

func runConvert(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	source := strings.TrimSpace(c.String("url"))
	if source == "" {
		source = s.settings.SubscriptionURL
	}
	if source == "" {
		return fmt.Errorf("no subscription url, pass --url")
	}
	if source != s.settings.SubscriptionURL {
		s.settings.SubscriptionURL = source
		if err := s.saveSettings(); err != nil {
			return err
		}
	}
	base, out, err := s.outputPaths(c)
	if err != nil {
		return err
	}

	sy := &syncer.Syncer{
		Log: s.logger,
		Merge: confgen.MergeOptions{
			PruneStale: c.Bool("prune-stale"),
			AllowLAN:   c.Bool("allow-lan"),
		},
	}
	if dbPath := strings.TrimSpace(c.String("country-db")); dbPath != "" {
		db, err := geodata.OpenCountryDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		sy.Transform = func(records []sharelink.Record) []sharelink.Record {
			return geodata.TagCountries(records, db)
		}
	}

	s.logger.Printf("convert source_len=%d base=%s out=%s", len(source), base, out)
	res, err := sy.Convert(c.Context, source, base, out)
	if err != nil {
		s.logger.Printf("convert failed: %v", err)
		return err
	}
	if err := saveState(s, source, "", res); err != nil {
		return err
	}
	printResult(res)

	if c.Bool("reload") {
		abs, err := filepath.Abs(res.Target)
		if err != nil {
			return fmt.Errorf("resolve output path: %w", err)
		}
		if err := s.controller().ReloadConfig(c.Context, abs); err != nil {
			s.logger.Printf("reload failed: %v", err)
			return fmt.Errorf("reload daemon: %w", err)
		}
		fmt.Println("daemon reloaded")
	}
	return nil
}

func runProfiles(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	listPath, err := s.profileList(c)
	if err != nil {
		return err
	}
	list, err := profiles.Load(listPath)
	if err != nil {
		return err
	}
	items := list.Items()
	fmt.Printf("%s (%d profiles)\n", listPath, len(items))
	current := list.Current()
	for _, it := range items {
		mark := " "
		if it.ID == current {
			mark = "*"
		}
		updated := "never"
		if t, ok := it.UpdatedAt(); ok {
			updated = t.Local().Format(timeLayout)
		}
		proxies := "-"
		if n, ok := profiles.CountProxies(profiles.ProfilePath(listPath, it.ID)); ok {
			proxies = fmt.Sprint(n)
		}
		fmt.Printf("%s %-16s %-24s %-7s proxies=%-5s updated=%s\n", mark, it.ID, it.Name, it.Type, proxies, updated)
	}
	return nil
}

func runUpdate(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	listPath, err := s.profileList(c)
	if err != nil {
		return err
	}
	list, err := profiles.Load(listPath)
	if err != nil {
		return err
	}

	ids := lo.Uniq(lo.Compact(c.StringSlice("id")))
	if add := strings.TrimSpace(c.String("add")); add != "" {
		name := strings.TrimSpace(c.String("name"))
		if name == "" {
			name = "Remote"
		}
		it := list.Add(name, add)
		if err := list.Save(); err != nil {
			return err
		}
		fmt.Printf("added profile %s (%s)\n", it.ID, it.Name)
		ids = append(ids, it.ID)
	}
	if c.Bool("all") {
		remote := lo.Filter(list.Items(), func(it profiles.Item, _ int) bool { return it.URL != "" })
		ids = lo.Uniq(append(ids, lo.Map(remote, func(it profiles.Item, _ int) string { return it.ID })...))
	}
	if len(ids) == 0 {
		if cur := list.Current(); cur != "" {
			ids = []string{cur}
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("nothing to update, pass --id, --all or --add")
	}

	sy := &syncer.Syncer{Log: s.logger}
	limiter := rate.NewLimiter(rate.Every(updateSpacing), 1)
	var failed []string
	for _, id := range ids {
		if err := limiter.Wait(c.Context); err != nil {
			return err
		}
		res, err := sy.UpdateProfile(c.Context, listPath, id)
		if err != nil {
			s.logger.Printf("update %s failed: %v", id, err)
			fmt.Printf("%s: %v\n", id, err)
			failed = append(failed, id)
			continue
		}
		if err := saveState(s, "profile:"+id, id, res); err != nil {
			return err
		}
		fmt.Printf("%s: ", id)
		printResult(res)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d profiles failed: %s", len(failed), len(ids), strings.Join(failed, ", "))
	}
	return nil
}

func runProviders(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	if c.Bool("live") {
		ps, err := s.controller().Providers(c.Context)
		if err != nil {
			return fmt.Errorf("list providers: %w", err)
		}
		for _, p := range ps {
			fmt.Printf("%-24s %-8s proxies=%-5d updated=%s\n", p.Name, p.VehicleType, len(p.Proxies), p.UpdatedAt.Local().Format(timeLayout))
		}
	} else {
		found, ok := s.daemonConfig(c)
		if !ok {
			return fmt.Errorf("daemon config not found, pass --config")
		}
		b, err := os.ReadFile(found.Path)
		if err != nil {
			return fmt.Errorf("read daemon config: %w", err)
		}
		ps, err := confgen.Providers(b)
		if err != nil {
			return err
		}
		for _, p := range ps {
			fmt.Printf("%-24s %-6s %s\n", p.Name, p.Type, lo.Ternary(p.URL != "", p.URL, p.Path))
		}
	}

	var errs []error
	for _, name := range lo.Compact(c.StringSlice("refresh")) {
		if err := s.controller().UpdateProvider(c.Context, name); err != nil {
			s.logger.Printf("refresh provider %s failed: %v", name, err)
			errs = append(errs, err)
			continue
		}
		fmt.Printf("refreshed %s\n", name)
	}
	return errors.Join(errs...)
}

func runImportV2rayN(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	home := strings.TrimSpace(c.String("v2rayn-home"))
	imported, err := v2raynimport.LoadFromHome(home, strings.TrimSpace(c.String("sub-id")))
	if err != nil {
		s.logger.Printf("import failed: %v", err)
		return err
	}
	s.logger.Printf("imported %d v2rayN profiles, skipped %d, active=%s", len(imported.Records), imported.Skipped, imported.ActiveID)
	if len(imported.Records) == 0 {
		return syncer.ErrNoSupportedEntries
	}

	base, out, err := s.outputPaths(c)
	if err != nil {
		return err
	}
	sy := &syncer.Syncer{
		Log:   s.logger,
		Merge: confgen.MergeOptions{PruneStale: c.Bool("prune-stale")},
	}
	res, err := sy.WriteRecords(imported.Records, base, out)
	if err != nil {
		return err
	}
	if err := saveState(s, "v2rayn:"+v2raynimport.DBPath(home), "", res); err != nil {
		return err
	}
	if imported.Skipped > 0 {
		fmt.Printf("skipped %d unsupported profiles\n", imported.Skipped)
	}
	printResult(res)
	return nil
}

func runGeodata(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	found, ok := s.daemonConfig(c)
	dir := strings.TrimSpace(c.String("dir"))
	if dir == "" {
		if !ok {
			return fmt.Errorf("daemon config not found, pass --dir or --config")
		}
		dir = filepath.Dir(found.Path)
	}
	files := geodata.DefaultFiles
	if ok {
		files = geodata.FilesFromConfig(found.Path)
	}
	refreshed, err := geodata.Ensure(dir, files, time.Now())
	if err != nil {
		s.logger.Printf("ensure geo files failed: %v", err)
		return err
	}
	if len(refreshed) == 0 {
		fmt.Printf("geo files in %s are up to date\n", dir)
		return nil
	}
	fmt.Printf("downloaded into %s: %s\n", dir, strings.Join(refreshed, ", "))
	return nil
}

func runSysproxyOn(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	found, ok := s.daemonConfig(c)
	if !ok {
		return fmt.Errorf("daemon config not found, pass --config")
	}
	change, err := sysproxy.Enable(found.Path)
	if err != nil {
		return err
	}
	if !change.Applied {
		fmt.Println("system proxy left unchanged, a manual proxy or PAC is already configured")
		return nil
	}
	s.logger.Printf("system proxy set to %s (%s)", change.Endpoint, change.Endpoint.Protocol)
	fmt.Printf("system proxy set to %s\n", change.Endpoint)
	return nil
}

func runSysproxyOff(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	if err := sysproxy.Disable(); err != nil {
		return err
	}
	fmt.Println("system proxy disabled")
	return nil
}

func runStatus(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	if st, err := state.Load(s.confDir); err == nil {
		fmt.Printf("last sync:  %s %s -> %s (%s, %d proxies)\n",
			st.SyncedAt.Local().Format(timeLayout), st.Source, st.Target, st.Mode, st.Proxies)
	} else {
		fmt.Println("last sync:  none")
	}

	if v, err := s.controller().Version(c.Context); err == nil {
		fmt.Printf("daemon:     %s (meta=%t) at %s\n", v.Version, v.Meta, s.settings.APIURL)
	} else {
		fmt.Printf("daemon:     unreachable at %s: %v\n", s.settings.APIURL, err)
	}

	found, ok := s.daemonConfig(c)
	if !ok {
		fmt.Println("config:     not found")
		return nil
	}
	fmt.Printf("config:     %s\n", found.Path)
	if ep, err := sysproxy.DetectProxyEndpoint(found.Path); err == nil {
		fmt.Printf("listener:   %s\n", ep)
	}
	files := geodata.FilesFromConfig(found.Path)
	ages := geodata.Age(filepath.Dir(found.Path), files, time.Now())
	for _, f := range files {
		if age, ok := ages[f.Name]; ok {
			fmt.Printf("geo:        %s %s old\n", f.Name, age.Round(time.Hour))
		}
	}
	return nil
}

func saveState(s *session, source, profileID string, res syncer.Result) error {
	st := state.New(source, res.Target, res.Mode, res.Proxies)
	st.ProfileID = profileID
	st.Warnings = res.Warnings
	if err := state.Save(s.confDir, st); err != nil {
		s.logger.Printf("save state failed: %v", err)
		return err
	}
	return nil
}

func printResult(res syncer.Result) {
	fmt.Printf("wrote %s (%s, %d proxies)\n", res.Target, res.Mode, res.Proxies)
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
