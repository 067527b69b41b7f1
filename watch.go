package strata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// debounceDelay groups bursts of change events into one reload.
const debounceDelay = 100 * time.Millisecond

// Watch loads the store, then reloads it whenever a watchable source
// reports a change. Returns: snapshots channel, errors channel, initial
// load error.
//
// The first snapshot (Version 1, Source "initial") is sent before any
// reload. A failed reload is reported on the errors channel and the
// previous snapshot stays installed. Both channels close when ctx is
// done or when no source can be watched.
func (s *Store) Watch(ctx context.Context, opts ...LoadOption) (<-chan Snapshot, <-chan error, error) {
	if err := s.Load(ctx, opts...); err != nil {
		return nil, nil, fmt.Errorf("initial load failed: %w", err)
	}

	snapshotCh := make(chan Snapshot)
	errorCh := make(chan error)

	go s.watchLoop(ctx, opts, snapshotCh, errorCh)

	return snapshotCh, errorCh, nil
}

func (s *Store) watchLoop(ctx context.Context, opts []LoadOption, snapshotCh chan<- Snapshot, errorCh chan<- error) {
	defer close(snapshotCh)
	defer close(errorCh)

	version := int64(1)
	if !s.emit(ctx, snapshotCh, version, "initial") {
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, err := s.watchSources(watchCtx)
	if err != nil {
		select {
		case errorCh <- err:
		case <-ctx.Done():
		}
		return
	}
	if changes == nil {
		return
	}

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-changes:
			if !ok {
				return
			}
			pending = event.Cause
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceDelay)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if err := s.Load(ctx, opts...); err != nil {
				s.logger.Warn("reload failed, keeping previous configuration", zap.Error(err))
				select {
				case errorCh <- fmt.Errorf("reload failed: %w", err):
				case <-ctx.Done():
					return
				}
				continue
			}

			version++
			s.logger.Info("configuration reloaded",
				zap.Int64("version", version),
				zap.String("cause", pending),
			)
			if !s.emit(ctx, snapshotCh, version, pending) {
				return
			}
		}
	}
}

func (s *Store) emit(ctx context.Context, snapshotCh chan<- Snapshot, version int64, cause string) bool {
	st := s.current.Load()
	if st == nil {
		return true
	}

	select {
	case snapshotCh <- Snapshot{
		Config:      st.data,
		Sources:     st.sources,
		Environment: st.environment,
		Version:     version,
		LoadedAt:    st.loadedAt,
		Source:      cause,
	}:
		return true
	case <-ctx.Done():
		return false
	}
}

// watchSources starts every watchable source and fans their events into
// one channel. It returns a nil channel when nothing can be watched.
func (s *Store) watchSources(ctx context.Context) (<-chan ChangeEvent, error) {
	var inputs []<-chan ChangeEvent

	if w, ok := s.resources.(ResourceWatcher); ok {
		ch, err := w.Watch(ctx)
		switch {
		case errors.Is(err, ErrWatchNotSupported):
		case err != nil:
			return nil, fmt.Errorf("watch resources: %w", err)
		default:
			inputs = append(inputs, ch)
		}
	}

	for _, src := range []Source{s.env, s.props} {
		if src == nil {
			continue
		}
		ch, err := src.Watch(ctx)
		switch {
		case errors.Is(err, ErrWatchNotSupported):
		case err != nil:
			return nil, fmt.Errorf("watch source %s: %w", src.Name(), err)
		default:
			inputs = append(inputs, ch)
		}
	}

	if len(inputs) == 0 {
		return nil, nil
	}

	merged := make(chan ChangeEvent)
	var wg sync.WaitGroup
	for _, in := range inputs {
		wg.Add(1)
		go func(in <-chan ChangeEvent) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-in:
					if !ok {
						return
					}
					select {
					case merged <- event:
					case <-ctx.Done():
						return
					}
				}
			}
		}(in)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged, nil
}
