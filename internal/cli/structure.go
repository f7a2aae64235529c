package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tvs/internal/compiler"
	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// ReadStructureFile reads a structure from a YAML file in the layout of
// compiler.StructureSpec:
//
//	nodes: [u0, u1]
//	values:
//	  x: {u0: "1"}
//	  n: {"u0,u1": "1/2"}
func ReadStructureFile(path string, vocab *ir.Vocabulary) (*tvs.Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read structure: %w", err)
	}
	var spec compiler.StructureSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%s: parse structure: %w", path, err)
	}
	s, _, err := compiler.BuildStructure(vocab, spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
