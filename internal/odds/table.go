// Package odds holds the validated prize tables for each stake level and the
// weighted selector that draws from them.
package odds

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
)

// Permille is the total weight of every table.
const Permille = 1000

var ErrInvalidTable = errors.New("invalid odds table")

type Kind string

const (
	KindCollectible Kind = "collectible"
	KindCurrency    Kind = "currency"
	KindLoss        Kind = "loss"
)

type Outcome struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"kind"`
	Payload string          `json:"payload,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Weight  int             `json:"weight"`
}

// Credit is the currency paid out by the outcome, zero for everything but currency wins.
func (o Outcome) Credit() decimal.Decimal {
	if o.Kind == KindCurrency {
		return o.Amount
	}
	return decimal.Zero
}

// Table is immutable once returned by Load.
type Table struct {
	Level      string
	Stake      decimal.Decimal
	Outcomes   []Outcome
	LossWeight int

	// bounds[i] is the exclusive upper draw bound of Outcomes[i]; the loss
	// bucket ends at Permille.
	bounds []int
}

func (t *Table) Loss() Outcome {
	return Outcome{ID: string(KindLoss), Kind: KindLoss, Amount: decimal.Zero, Weight: t.LossWeight}
}

type Config struct {
	Version string        `json:"version"`
	Tables  []TableConfig `json:"tables"`
}

type TableConfig struct {
	Level      string          `json:"level"`
	Stake      decimal.Decimal `json:"stake"`
	Outcomes   []Outcome       `json:"outcomes"`
	LossWeight int             `json:"loss_weight"`
}

type Set struct {
	Version string
	tables  map[string]*Table
	levels  []string
}

func (s *Set) Table(level string) (*Table, bool) {
	t, ok := s.tables[level]
	return t, ok
}

// Levels returns the stake levels ordered by stake amount.
func (s *Set) Levels() []string {
	out := make([]string, len(s.levels))
	copy(out, s.levels)
	return out
}

//go:embed default_tables.json
var defaultTables []byte

func Default() (*Set, error) {
	return parse(defaultTables)
}

func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading odds file %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Set, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return Load(cfg)
}

// Load validates every table and precomputes the cumulative draw bounds.
func Load(cfg Config) (*Set, error) {
	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("%w: no stake levels configured", ErrInvalidTable)
	}

	set := &Set{
		Version: cfg.Version,
		tables:  make(map[string]*Table, len(cfg.Tables)),
	}

	for _, tc := range cfg.Tables {
		t, err := newTable(tc)
		if err != nil {
			return nil, err
		}
		if _, dup := set.tables[t.Level]; dup {
			return nil, fmt.Errorf("%w: duplicate stake level %q", ErrInvalidTable, t.Level)
		}
		set.tables[t.Level] = t
		set.levels = append(set.levels, t.Level)
	}

	sort.SliceStable(set.levels, func(i, j int) bool {
		return set.tables[set.levels[i]].Stake.LessThan(set.tables[set.levels[j]].Stake)
	})

	return set, nil
}

func newTable(tc TableConfig) (*Table, error) {
	if tc.Level == "" {
		return nil, fmt.Errorf("%w: stake level without a name", ErrInvalidTable)
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: level %q: %s", ErrInvalidTable, tc.Level, fmt.Sprintf(format, args...))
	}

	if !tc.Stake.IsPositive() {
		return nil, invalid("stake must be positive, got %s", tc.Stake)
	}
	if tc.LossWeight < 0 {
		return nil, invalid("negative loss weight %d", tc.LossWeight)
	}

	t := &Table{
		Level:      tc.Level,
		Stake:      tc.Stake,
		Outcomes:   make([]Outcome, 0, len(tc.Outcomes)),
		LossWeight: tc.LossWeight,
		bounds:     make([]int, 0, len(tc.Outcomes)),
	}

	seen := make(map[string]bool, len(tc.Outcomes))
	sum := 0
	for _, o := range tc.Outcomes {
		switch {
		case o.ID == "":
			return nil, invalid("outcome without an id")
		case o.ID == string(KindLoss):
			return nil, invalid("outcome id %q is reserved", o.ID)
		case seen[o.ID]:
			return nil, invalid("duplicate outcome id %q", o.ID)
		case o.Weight < 0:
			return nil, invalid("outcome %q has negative weight %d", o.ID, o.Weight)
		}
		seen[o.ID] = true

		switch o.Kind {
		case KindCurrency:
			if !o.Amount.IsPositive() {
				return nil, invalid("currency outcome %q must pay a positive amount", o.ID)
			}
		case KindCollectible:
			if o.Payload == "" {
				return nil, invalid("collectible outcome %q has no payload", o.ID)
			}
			o.Amount = decimal.Zero
		default:
			return nil, invalid("outcome %q has unknown kind %q", o.ID, o.Kind)
		}

		sum += o.Weight
		// Checked per step so a huge weight cannot overflow the running sum.
		if sum > Permille {
			return nil, invalid("weights exceed %d", Permille)
		}
		t.Outcomes = append(t.Outcomes, o)
		t.bounds = append(t.bounds, sum)
	}

	if sum+tc.LossWeight != Permille {
		return nil, invalid("outcome weights %d plus loss weight %d must equal %d", sum, tc.LossWeight, Permille)
	}

	return t, nil
}
