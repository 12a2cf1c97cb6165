// Package config loads checker runs from YAML documents: state-variable
// declarations, the step bound, and the init/next/invariant formulas.
package config

import (
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// Config is the YAML shape of a checker run.
type Config struct {
	// Variables maps state-variable names to compact type strings such as
	// "int" or "set(int)".
	Variables map[string]string `json:"variables"`
	// Bound is the number of next-state steps to unroll.
	Bound int `json:"bound"`
	// DumpSmt, when set, is the path the SMT-LIB dump of the recorded
	// constraints is written to; only a dry run (check --dry-run) writes it.
	DumpSmt string `json:"dumpSmt"`

	Init      map[string]interface{} `json:"init"`
	Next      map[string]interface{} `json:"next"`
	Invariant map[string]interface{} `json:"invariant"`
}

// ProcessYAMLInput parses a YAML document into a Config.
//
// Parameters:
//
//	yamlData []byte: The YAML data to process.
//
// Returns:
//
//	*Config: The parsed configuration.
//	error: An error if the YAML cannot be unmarshaled.
func ProcessYAMLInput(yamlData []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(yamlData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ProcessYAMLInput(data)
}

// VarTypes parses the declared variable types.
//
// Returns:
//
//	map[string]types.CellType: Cell types keyed by variable name.
//	error: An error if a type string does not parse.
func (c *Config) VarTypes() (map[string]types.CellType, error) {
	out := make(map[string]types.CellType, len(c.Variables))
	for name, ts := range c.Variables {
		tp, err := types.ParseType(ts)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		out[name] = tp
	}
	return out, nil
}

// VarNames returns the declared variable names in sorted order.
func (c *Config) VarNames() []string {
	names := make([]string, 0, len(c.Variables))
	for name := range c.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InitExpr decodes the init formula.
func (c *Config) InitExpr(g *ir.IdGen) (*ir.Expr, error) {
	if c.Init == nil {
		return nil, fmt.Errorf("config declares no init formula")
	}
	return ir.FromMap(c.Init, g)
}

// NextExpr decodes the next-state formula.
func (c *Config) NextExpr(g *ir.IdGen) (*ir.Expr, error) {
	if c.Next == nil {
		return nil, fmt.Errorf("config declares no next formula")
	}
	return ir.FromMap(c.Next, g)
}

// InvariantExpr decodes the invariant, when present.
//
// Returns:
//
//	*ir.Expr: The invariant, or nil when the config declares none.
//	error: An error if the declared invariant does not decode.
func (c *Config) InvariantExpr(g *ir.IdGen) (*ir.Expr, error) {
	if c.Invariant == nil {
		return nil, nil
	}
	return ir.FromMap(c.Invariant, g)
}
