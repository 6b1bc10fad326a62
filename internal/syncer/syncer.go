// Package syncer drives a subscription update end to end: fetch the payload,
// decide whether it is a full config or a link list, synthesize and write.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lkimju1/subsync/internal/applog"
	"github.com/lkimju1/subsync/internal/confgen"
	"github.com/lkimju1/subsync/internal/fetch"
	"github.com/lkimju1/subsync/internal/profiles"
	"github.com/lkimju1/subsync/internal/sharelink"
	"github.com/lkimju1/subsync/internal/state"
	"github.com/lkimju1/subsync/internal/subscription"
	"github.com/lkimju1/subsync/internal/validate"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoSupportedEntries is returned when a link-list payload yields no
	// decodable proxy. Nothing is written in that case.
	ErrNoSupportedEntries = errors.New("no supported entries found")
	ErrNoURL              = errors.New("profile has no subscription url")
)

// fetchPayload is swapped in tests.
var fetchPayload = func(ctx context.Context, source string, opt fetch.Options) ([]byte, error) {
	return fetch.Bytes(ctx, source, opt)
}

type Syncer struct {
	Log   *applog.Logger
	Fetch fetch.Options
	Merge confgen.MergeOptions
	Now   func() time.Time
	// Transform, when set, rewrites decoded records before names are made unique.
	Transform func([]sharelink.Record) []sharelink.Record
}

// Result describes what was written.
type Result struct {
	Mode     state.Mode
	Proxies  int
	Target   string
	Warnings []string
}

// Synthesize turns a payload into the document to write. base may be nil.
func (s *Syncer) Synthesize(payload, base []byte) ([]byte, Result, error) {
	return s.synthesize(payload, base, s.Merge)
}

func (s *Syncer) synthesize(payload, base []byte, opts confgen.MergeOptions) ([]byte, Result, error) {
	if subscription.LooksLikeFullConfig(payload) {
		n, _ := confgen.CountProxies(payload)
		s.Log.Printf("payload is a full config, proxies=%d", n)
		return payload, Result{Mode: state.ModeVerbatim, Proxies: n}, nil
	}
	lines := subscription.ExtractLines(payload)
	records := sharelink.DecodeAll(lines)
	s.Log.With(logrus.Fields{"lines": len(lines), "decoded": len(records)}).Info("decoded subscription")
	if len(records) == 0 {
		return nil, Result{}, ErrNoSupportedEntries
	}
	return s.mergeRecords(records, base, opts)
}

// MergeRecords installs records into base after disambiguating names.
func (s *Syncer) MergeRecords(records []sharelink.Record, base []byte) ([]byte, Result, error) {
	return s.mergeRecords(records, base, s.Merge)
}

func (s *Syncer) mergeRecords(records []sharelink.Record, base []byte, opts confgen.MergeOptions) ([]byte, Result, error) {
	if len(records) == 0 {
		return nil, Result{}, ErrNoSupportedEntries
	}
	if s.Transform != nil {
		records = s.Transform(records)
	}
	records = sharelink.UniqueNames(records)
	if err := validate.Records(records); err != nil {
		return nil, Result{}, fmt.Errorf("validate proxies: %w", err)
	}
	out, err := confgen.Merge(base, records, opts)
	if err != nil {
		return nil, Result{}, err
	}
	report, err := validate.Document(out)
	if err != nil {
		return nil, Result{}, fmt.Errorf("validate config: %w", err)
	}
	for _, w := range report.Warnings {
		s.Log.Printf("warning: %s", w)
	}
	return out, Result{Mode: state.ModeMerged, Proxies: report.Proxies, Warnings: report.Warnings}, nil
}

// Convert fetches source, merges it into the config at basePath (which may
// not exist yet) and writes the result to outPath.
func (s *Syncer) Convert(ctx context.Context, source, basePath, outPath string) (Result, error) {
	payload, err := fetchPayload(ctx, source, s.Fetch)
	if err != nil {
		return Result{}, err
	}
	base, err := readOptional(basePath)
	if err != nil {
		return Result{}, err
	}
	out, res, err := s.Synthesize(payload, base)
	if err != nil {
		return Result{}, err
	}
	return s.write(outPath, out, res)
}

// WriteRecords merges already decoded records into basePath and writes outPath.
func (s *Syncer) WriteRecords(records []sharelink.Record, basePath, outPath string) (Result, error) {
	base, err := readOptional(basePath)
	if err != nil {
		return Result{}, err
	}
	out, res, err := s.MergeRecords(records, base)
	if err != nil {
		return Result{}, err
	}
	return s.write(outPath, out, res)
}

// UpdateProfile refreshes one mihomo-party profile: the body is written to
// profiles/<id>.yaml and the list entry gets a new updated timestamp. Link
// lists are merged into the list's work config. The work config's proxies
// are all replaced, so groups always drop members that are no longer defined.
func (s *Syncer) UpdateProfile(ctx context.Context, listPath, id string) (Result, error) {
	list, err := profiles.Load(listPath)
	if err != nil {
		return Result{}, err
	}
	item, err := list.Find(id)
	if err != nil {
		return Result{}, err
	}
	if item.URL == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrNoURL, id)
	}
	log := s.Log.With(logrus.Fields{"profile": id, "url_len": len(item.URL)})

	payload, err := fetchPayload(ctx, item.URL, s.Fetch)
	if err != nil {
		return Result{}, err
	}
	log.Infof("fetched %d bytes", len(payload))
	base, err := readOptional(profiles.WorkConfigPath(listPath))
	if err != nil {
		return Result{}, err
	}
	opts := s.Merge
	opts.PruneStale = true
	out, res, err := s.synthesize(payload, base, opts)
	if err != nil {
		return Result{}, err
	}
	res, err = s.write(profiles.ProfilePath(listPath, id), out, res)
	if err != nil {
		return Result{}, err
	}
	if err := list.SetUpdated(id, s.now().UnixMilli()); err != nil {
		return Result{}, err
	}
	if err := list.Save(); err != nil {
		return Result{}, err
	}
	log.Infof("profile updated, mode=%s proxies=%d", res.Mode, res.Proxies)
	return res, nil
}

func (s *Syncer) write(path string, content []byte, res Result) (Result, error) {
	if err := validate.OutputPath(path); err != nil {
		return Result{}, err
	}
	if err := profiles.WriteFileAtomic(path, content); err != nil {
		return Result{}, err
	}
	res.Target = path
	s.Log.Printf("wrote %s (%s, %d proxies)", path, res.Mode, res.Proxies)
	return res, nil
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read base config: %w", err)
	}
	return b, nil
}
