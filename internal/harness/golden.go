package harness

import (
	"bytes"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tvs/internal/ir"
)

// Snapshot renders the stored structures of a result as a canonical
// value:
//
//	{"locations": {"loop": [<structure>, ...]}, "scenario": "name"}
//
// Structures at a location are ordered by their canonical encoding, so
// the snapshot does not depend on the order the engine reached them in.
func Snapshot(scenarioName string, result *Result) (ir.Object, error) {
	locs := ir.Object{}
	for loc, structures := range result.Locations {
		encoded := make([][]byte, 0, len(structures))
		for _, s := range structures {
			data, err := s.MarshalCanonical()
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, data)
		}
		order := make([]int, len(structures))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return bytes.Compare(encoded[a], encoded[b])
		})
		arr := make(ir.Array, 0, len(structures))
		for _, i := range order {
			arr = append(arr, structures[i].Snapshot())
		}
		locs[loc] = arr
	}
	return ir.Object{
		"locations": locs,
		"scenario":  ir.String(scenarioName),
	}, nil
}

// MarshalGolden returns the canonical JSON of Snapshot. This is the
// content of a scenario's golden file.
func MarshalGolden(scenarioName string, result *Result) ([]byte, error) {
	snap, err := Snapshot(scenarioName, result)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(snap)
}

// RunWithGolden runs a scenario and compares the stored structures against
// testdata/golden/<name>.golden. Run with -update to regenerate.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	AssertGolden(t, scenario.Name, result)
	return result
}

// AssertGolden compares a result's structures against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	data, err := MarshalGolden(scenarioName, result)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
}
