package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bubby932/rhl/internal/cache"
	"github.com/bubby932/rhl/internal/config"
	"github.com/bubby932/rhl/internal/preprocess"
	"github.com/bubby932/rhl/internal/stdlib"
)

// Version is part of every cache key, so bumping it invalidates old entries.
const Version = "0.1.0"

// Request describes one preprocessing run.
type Request struct {
	// Name identifies the source in errors, logs and cache records.
	Name   string
	Source string

	// Config supplies definitions and settings. Nil means defaults.
	Config *config.Config

	// Cache is optional.
	Cache *cache.Store

	Registry *stdlib.Registry
	ReadFile preprocess.ReadFileFunc
	IDs      IDGenerator
	Logger   *slog.Logger
}

// Result is the outcome of a successful run.
type Result struct {
	RunID        string                  `json:"run_id"`
	Output       string                  `json:"output"`
	CacheHit     bool                    `json:"cache_hit"`
	Key          string                  `json:"key,omitempty"`
	Dependencies []preprocess.Dependency `json:"dependencies"`
}

func (r Request) withDefaults() Request {
	if r.Name == "" {
		r.Name = preprocess.DefaultSourceName
	}
	if r.Config == nil {
		r.Config = &config.Config{}
	}
	if r.Registry == nil {
		r.Registry = stdlib.Default()
	}
	if r.ReadFile == nil {
		r.ReadFile = os.ReadFile
	}
	if r.IDs == nil {
		r.IDs = UUIDv7Generator{}
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Options builds the preprocessor options for req.
func Options(req Request) preprocess.Options {
	req = req.withDefaults()
	return preprocess.Options{
		Name:             req.Name,
		Registry:         req.Registry,
		ReadFile:         req.ReadFile,
		IncludeDirs:      req.Config.IncludeDirs,
		MaxIncludeDepth:  req.Config.MaxIncludeDepth,
		Polarity:         req.Config.Polarity(),
		NormalizeUnicode: req.Config.NormalizeUnicode,
		Logger:           req.Logger,
	}
}

// Run preprocesses req.Source. Preprocessing errors are returned unchanged
// so callers can inspect them with the preprocess predicates.
func Run(ctx context.Context, req Request) (*Result, error) {
	req = req.withDefaults()

	defs, err := req.Config.Definitions()
	if err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	opts := Options(req)

	res := &Result{RunID: req.IDs.Generate()}
	log := req.Logger.With("run_id", res.RunID, "source", req.Name)

	if req.Cache != nil {
		key, err := cache.Key(keyInput(req, opts))
		if err != nil {
			return nil, err
		}
		res.Key = key

		entry, ok, err := req.Cache.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Debug("cache miss", "key", key)
		} else {
			stale := firstStale(req, entry.Dependencies)
			if stale == "" {
				res.Output = entry.Output
				res.Dependencies = entry.Dependencies
				res.CacheHit = true
				log.Debug("cache hit", "key", key)
				if err := req.Cache.RecordRun(ctx, cache.Run{ID: res.RunID, Key: key, SourceName: req.Name, Hit: true}); err != nil {
					return nil, err
				}
				log.Info("preprocessed", "cache_hit", true, "bytes", len(res.Output))
				return res, nil
			}
			log.Debug("stale cache entry", "key", key, "dependency", stale)
			if err := req.Cache.Delete(ctx, key); err != nil {
				return nil, err
			}
		}
	}

	p := preprocess.New(req.Source, opts)
	for _, d := range defs {
		p.Set(d)
	}
	out, err := p.Run()
	if err != nil {
		return nil, err
	}
	res.Output = out
	res.Dependencies = p.Dependencies()

	if req.Cache != nil {
		entry := cache.Entry{
			Key:          res.Key,
			SourceName:   req.Name,
			Output:       res.Output,
			Dependencies: res.Dependencies,
		}
		if err := req.Cache.Put(ctx, entry); err != nil {
			return nil, err
		}
		if err := req.Cache.RecordRun(ctx, cache.Run{ID: res.RunID, Key: res.Key, SourceName: req.Name}); err != nil {
			return nil, err
		}
	}

	log.Info("preprocessed", "cache_hit", false, "bytes", len(res.Output), "dependencies", len(res.Dependencies))
	return res, nil
}

func keyInput(req Request, opts preprocess.Options) cache.KeyInput {
	depth := opts.MaxIncludeDepth
	if depth <= 0 {
		depth = preprocess.DefaultMaxIncludeDepth
	}
	return cache.KeyInput{
		Source:           req.Source,
		Definitions:      req.Config.Defines,
		IncludeDirs:      opts.IncludeDirs,
		MaxIncludeDepth:  depth,
		Polarity:         opts.Polarity.String(),
		NormalizeUnicode: opts.NormalizeUnicode,
		Version:          Version,
	}
}

// firstStale returns the name of the first dependency whose content no
// longer matches its recorded hash, or "" if all are current.
func firstStale(req Request, deps []preprocess.Dependency) string {
	for _, d := range deps {
		var data []byte
		switch d.Kind {
		case preprocess.DependencyLibrary:
			text, err := req.Registry.Lookup(d.Name)
			if err != nil {
				return d.Name
			}
			data = []byte(text)
		case preprocess.DependencyFile:
			b, err := req.ReadFile(d.Name)
			if err != nil {
				return d.Name
			}
			data = b
		default:
			return d.Name
		}
		if preprocess.HashSource(data) != d.Hash {
			return d.Name
		}
	}
	return ""
}
