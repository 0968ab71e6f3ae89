// Package diagnostics publishes and renders registry health reports.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// ErrNoReport is returned when a sink holds no report yet.
var ErrNoReport = errors.New("no health report published")

// Sink stores health reports outside the process.
type Sink interface {
	Publish(ctx context.Context, report *registry.HealthReport) error
	Latest(ctx context.Context) (*registry.HealthReport, error)
	Close() error
}

// MultiSink publishes to every sink it holds.
type MultiSink []Sink

// Publish publishes to every sink, continuing past failures.
func (m MultiSink) Publish(ctx context.Context, report *registry.HealthReport) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Latest returns the latest report of the first sink that has one.
func (m MultiSink) Latest(ctx context.Context) (*registry.HealthReport, error) {
	for _, s := range m {
		report, err := s.Latest(ctx)
		if errors.Is(err, ErrNoReport) {
			continue
		}
		return report, err
	}
	return nil, ErrNoReport
}

// Close closes every sink.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode(report *registry.HealthReport) ([]byte, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encoding health report: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*registry.HealthReport, error) {
	var report registry.HealthReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding health report: %w", err)
	}
	return &report, nil
}
