package tasks

import (
	"fmt"
	"net/http"

	"github.com/lysyi3m/mp-comb/app/mp"
	"github.com/lysyi3m/mp-comb/app/rss"
	"github.com/lysyi3m/mp-comb/app/source"
)

// SourceFactory builds the remote list reader for a source definition.
type SourceFactory func(sourceConfig *source.Config) (source.Source, error)

type SourceOptions struct {
	Endpoint   string
	Token      string
	Cookie     string
	UserAgent  string
	HTTPClient *http.Client
}

func NewSourceFactory(opts SourceOptions) SourceFactory {
	return func(sourceConfig *source.Config) (source.Source, error) {
		switch sourceConfig.Type {
		case source.TypeMP:
			if opts.Token == "" || opts.Cookie == "" {
				return nil, fmt.Errorf("source %s: token and cookie are required for %s sources", sourceConfig.Name, source.TypeMP)
			}
			return mp.NewClient(mp.Options{
				Endpoint:   opts.Endpoint,
				Token:      opts.Token,
				Cookie:     opts.Cookie,
				FakeID:     sourceConfig.FakeID,
				UserAgent:  opts.UserAgent,
				PageSize:   sourceConfig.Settings.PageSize,
				Timeout:    sourceConfig.Settings.GetTimeout(),
				HTTPClient: opts.HTTPClient,
			}), nil
		case source.TypeRSS:
			return rss.NewSource(opts.HTTPClient, sourceConfig.URL, opts.UserAgent,
				sourceConfig.Settings.PageSize, sourceConfig.Settings.GetTimeout()), nil
		default:
			return nil, fmt.Errorf("source %s: unknown type %q", sourceConfig.Name, sourceConfig.Type)
		}
	}
}
