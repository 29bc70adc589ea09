// Package seed loads diagnostic test fixtures and inserts them through the
// same validation path the HTTP API uses.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/dxresults/dxresults/internal/domain/diagnostictest"
)

// Creator is the slice of the service seeding needs.
type Creator interface {
	CreateDiagnosticTest(ctx context.Context, c *diagnostictest.Candidate) (*diagnostictest.DiagnosticTest, error)
}

// Rejection is a fixture entry that failed validation.
type Rejection struct {
	Index  int
	Errors diagnostictest.ValidationErrors
}

type Report struct {
	Created  []*diagnostictest.DiagnosticTest
	Rejected []Rejection
	// UnlistedTestTypes are the distinct test types that were stored but are
	// not in diagnostictest.KnownTestTypes, in first-seen order.
	UnlistedTestTypes []string
}

// Default is the single sample record seeded when no fixture file is given.
func Default() []any {
	return []any{
		map[string]any{
			"patientName": "Zain",
			"testType":    "Blood Test",
			"result":      "Pending",
			"notes":       "Patient has mild symptoms.",
		},
	}
}

// Load decodes fixtures from YAML. The document is either a sequence of
// records or a mapping with a "tests" sequence. Entries are returned as raw
// payloads so they go through validation unchanged.
func Load(r io.Reader) ([]any, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	if m, ok := doc.(map[string]any); ok {
		tests, found := m["tests"]
		if !found {
			return nil, errors.New(`fixtures mapping has no "tests" key`)
		}
		doc = tests
	}
	if doc == nil {
		return nil, nil
	}

	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("fixtures must be a sequence, got %T", doc)
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = normalize(it)
	}
	return out, nil
}

func LoadFile(path string) ([]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Run validates every payload and creates the valid ones in order. Invalid
// entries are reported and skipped; a storage failure stops the run.
func Run(ctx context.Context, svc Creator, payloads []any, logger zerolog.Logger) (*Report, error) {
	rep := &Report{}
	for i, p := range payloads {
		cand, verrs := diagnostictest.Validate(p)
		if len(verrs) > 0 {
			logger.Warn().Int("index", i).Err(verrs).Msg("skipping invalid fixture")
			rep.Rejected = append(rep.Rejected, Rejection{Index: i, Errors: verrs})
			continue
		}

		rec, err := svc.CreateDiagnosticTest(ctx, cand)
		if err != nil {
			return rep, fmt.Errorf("create fixture %d: %w", i, err)
		}
		logger.Info().
			Str("id", rec.ID.String()).
			Str("patient_name", rec.PatientName).
			Str("test_type", rec.TestType).
			Msg("seeded diagnostic test")
		rep.Created = append(rep.Created, rec)

		if !diagnostictest.IsKnownTestType(rec.TestType) && !slices.Contains(rep.UnlistedTestTypes, rec.TestType) {
			logger.Info().Str("test_type", rec.TestType).Msg("test type is not in the known list")
			rep.UnlistedTestTypes = append(rep.UnlistedTestTypes, rec.TestType)
		}
	}
	return rep, nil
}

// normalize makes YAML values look like decoded JSON. yaml.v3 only produces
// map[any]any when a mapping has a non-string key.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
