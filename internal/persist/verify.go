package persist

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"infobox_scraper/internal/record"
)

var ErrRoundTripMismatch = errors.New("reloaded collection differs from the in-memory one")

// Verify reports whether reloaded is structurally equal to original.
func Verify(original, reloaded []*record.Record) bool {
	return record.EqualCollections(original, reloaded)
}

// MismatchPolicy decides what a checkpoint does when Verify fails.
type MismatchPolicy int

const (
	// MismatchWarn logs and keeps the in-memory collection.
	MismatchWarn MismatchPolicy = iota
	// MismatchFail stops the run with ErrRoundTripMismatch.
	MismatchFail
	// MismatchUseReloaded logs and continues with what was read back.
	MismatchUseReloaded
)

func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch strings.ToLower(s) {
	case "", "warn":
		return MismatchWarn, nil
	case "fail":
		return MismatchFail, nil
	case "reloaded":
		return MismatchUseReloaded, nil
	}
	return MismatchWarn, fmt.Errorf("unknown mismatch policy %q", s)
}

func (p MismatchPolicy) String() string {
	switch p {
	case MismatchFail:
		return "fail"
	case MismatchUseReloaded:
		return "reloaded"
	}
	return "warn"
}

// Checkpoint saves a collection through Codec, reads it back and verifies it.
type Checkpoint struct {
	Name   string
	Codec  Codec
	Path   string
	Policy MismatchPolicy
	Logger *slog.Logger
}

// Run returns the collection the pipeline should continue with.
func (c Checkpoint) Run(records []*record.Record) ([]*record.Record, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("checkpoint", c.Name), slog.String("format", c.Codec.Name()), slog.String("path", c.Path))

	if err := WriteFile(c.Path, c.Codec, records); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", c.Name, err)
	}
	reloaded, err := ReadFile(c.Path, c.Codec)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", c.Name, err)
	}

	if Verify(records, reloaded) {
		logger.Info("round trip verified", slog.Int("records", len(records)))
		return records, nil
	}

	logger.Warn("round trip mismatch",
		slog.Int("records", len(records)),
		slog.Int("reloaded", len(reloaded)),
		slog.String("policy", c.Policy.String()),
		slog.Int("first_difference", firstDifference(records, reloaded)),
	)

	switch c.Policy {
	case MismatchFail:
		return nil, fmt.Errorf("checkpoint %s: %w", c.Name, ErrRoundTripMismatch)
	case MismatchUseReloaded:
		return reloaded, nil
	}
	return records, nil
}

// firstDifference is the index of the first unequal record, or the shorter
// length when one collection is a prefix of the other.
func firstDifference(a, b []*record.Record) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if !a[i].Equal(b[i]) {
			return i
		}
	}
	return n
}
