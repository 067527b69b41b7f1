package strata

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Azhovan/strata/format"
	"github.com/Azhovan/strata/value"
)

// layer is one source's contribution to a merge.
type layer struct {
	name         string
	data         value.Map
	originalKeys map[string]string
}

// sourceKey returns the provenance name for key. Sources that report raw
// names get "name:RAW_NAME" (e.g., "env:DATABASE_URL").
func (l layer) sourceKey(key string) string {
	if l.originalKeys != nil {
		if orig, ok := l.originalKeys[key]; ok {
			return l.name + ":" + orig
		}
	}
	return l.name
}

// resolve builds a snapshot. Precedence, lowest to highest:
//
//	conf/base, conf/default, conf/defaults/{env}, conf/{env}, env vars, properties
//
// The property and env tables are read first because either may select
// the environment.
func (s *Store) resolve(ctx context.Context, environmentKey string) (*state, error) {
	start := time.Now()

	props, err := loadLayer(ctx, s.props)
	if err != nil {
		return nil, err
	}
	env, err := loadLayer(ctx, s.env)
	if err != nil {
		return nil, err
	}

	environment := selectEnvironment(environmentKey, props.data, env.data)
	if err := validEnvironment(environment); err != nil {
		return nil, err
	}

	files, err := s.readResources(ctx, s.resourceNames(environment))
	if err != nil {
		return nil, err
	}

	layers := append(files, env, props)
	data, sources := merge(layers)

	s.logger.Info("configuration loaded",
		zap.Int("keys", len(data)),
		zap.String("environment", environment),
		zap.Duration("duration", time.Since(start)),
	)

	return &state{
		data:        data,
		sources:     sources,
		environment: environment,
		loadedAt:    time.Now(),
	}, nil
}

func loadLayer(ctx context.Context, src Source) (layer, error) {
	if src == nil {
		return layer{data: value.Map{}}, nil
	}

	var (
		data         value.Map
		originalKeys map[string]string
		err          error
	)
	if withKeys, ok := src.(SourceWithKeys); ok {
		data, originalKeys, err = withKeys.LoadWithKeys(ctx)
	} else {
		data, err = src.Load(ctx)
	}
	if err != nil {
		return layer{}, fmt.Errorf("load source %s: %w", src.Name(), err)
	}
	if data == nil {
		data = value.Map{}
	}

	return layer{name: src.Name(), data: data, originalKeys: originalKeys}, nil
}

// selectEnvironment returns the lowercased environment name. The first
// table holding a non-nil value for key decides, so an empty value there
// selects no environment even when a later table names one.
func selectEnvironment(key string, tables ...value.Map) string {
	for _, t := range tables {
		v, ok := t[key]
		if !ok || value.IsNil(v) {
			continue
		}
		return strings.ToLower(value.Text(v))
	}
	return ""
}

func validEnvironment(name string) error {
	if name == "" {
		return nil
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidEnvironment, name)
	}
	return nil
}

// resourceNames lists the resources to read, lowest precedence first.
func (s *Store) resourceNames(environment string) []string {
	names := []string{
		path.Join(s.prefix, "base"),
		path.Join(s.prefix, "default"),
	}
	if environment != "" {
		names = append(names,
			path.Join(s.prefix, "defaults", environment),
			path.Join(s.prefix, environment),
		)
	}
	return names
}

// readResources reads and decodes the named resources concurrently. The
// result keeps the order of names. A missing resource is an empty layer.
func (s *Store) readResources(ctx context.Context, names []string) ([]layer, error) {
	layers := make([]layer, len(names))
	if s.resources == nil {
		for i, name := range names {
			layers[i] = layer{name: "file:" + name, data: value.Map{}}
		}
		return layers, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			res, ok, err := s.resources.ReadResource(gctx, name)
			if err != nil {
				return fmt.Errorf("read resource %s: %w", name, err)
			}
			if !ok {
				s.logger.Debug("resource not found", zap.String("resource", name))
				layers[i] = layer{name: "file:" + name, data: value.Map{}}
				return nil
			}

			f := res.Format
			if f == "" {
				f = format.EDN
			}
			data, err := format.Decode(f, res.Data)
			if err != nil {
				return &ParseError{Resource: name, Path: res.Path, Format: f, Err: err}
			}

			s.logger.Debug("resource read",
				zap.String("resource", name),
				zap.String("path", res.Path),
				zap.Int("keys", len(data)),
			)
			layers[i] = layer{name: "file:" + res.Path, data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return layers, nil
}

// merge overwrites keys left to right. Values are not merged deeply: a
// nested map from a later layer replaces the earlier one whole.
func merge(layers []layer) (value.Map, map[string]string) {
	data := make(value.Map)
	sources := make(map[string]string)

	for _, l := range layers {
		for key, v := range l.data {
			data[key] = v
			sources[key] = l.sourceKey(key)
		}
	}

	return data, sources
}
