package odds

import (
	"math"
	"sync"
	"testing"
)

type fixedRNG int

func (f fixedRNG) IntN(n int) int { return int(f) }

func TestPickBoundaries(t *testing.T) {
	set, err := Load(Config{Tables: []TableConfig{validTable()}})
	if err != nil {
		t.Fatal(err)
	}
	table, _ := set.Table("bronze")

	tests := []struct {
		draw int
		want string
	}{
		{0, "coins"},
		{394, "coins"},
		{395, "legendary"},
		{399, "legendary"},
		{400, "loss"},
		{999, "loss"},
	}
	for _, tt := range tests {
		got := Select(table, fixedRNG(tt.draw))
		if got.ID != tt.want {
			t.Errorf("draw %d = %q, want %q", tt.draw, got.ID, tt.want)
		}
	}
}

func TestPickSkipsZeroWeight(t *testing.T) {
	tc := validTable()
	tc.Outcomes = append([]Outcome{{ID: "never", Kind: KindCurrency, Amount: dec("1"), Weight: 0}}, tc.Outcomes...)
	set, err := Load(Config{Tables: []TableConfig{tc}})
	if err != nil {
		t.Fatal(err)
	}
	table, _ := set.Table("bronze")

	for r := 0; r < Permille; r++ {
		if got := Select(table, fixedRNG(r)); got.ID == "never" {
			t.Fatalf("draw %d selected zero-weight outcome", r)
		}
	}
}

func TestSelectPureLoss(t *testing.T) {
	tc := validTable()
	tc.Outcomes = nil
	tc.LossWeight = Permille
	set, err := Load(Config{Tables: []TableConfig{tc}})
	if err != nil {
		t.Fatal(err)
	}
	table, _ := set.Table("bronze")

	rng := NewCryptoRNG()
	for i := 0; i < 1000; i++ {
		if got := Select(table, rng); got.Kind != KindLoss {
			t.Fatalf("pure-loss table returned %q", got.ID)
		}
	}
}

// Each empirical frequency must fall within 4 standard deviations of weight/1000.
func TestSelectFrequencies(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	table, _ := set.Table("gold")

	const draws = 200000
	counts := make(map[string]int)
	rng := NewSeededRNG(42)
	for i := 0; i < draws; i++ {
		counts[Select(table, rng).ID]++
	}

	expected := map[string]int{"loss": table.LossWeight}
	for _, o := range table.Outcomes {
		expected[o.ID] = o.Weight
	}

	for id, weight := range expected {
		p := float64(weight) / Permille
		mean := p * draws
		sigma := math.Sqrt(draws * p * (1 - p))
		got := float64(counts[id])
		if math.Abs(got-mean) > 4*sigma {
			t.Errorf("%s: got %d draws, want %.0f ± %.0f", id, counts[id], mean, 4*sigma)
		}
	}
}

func TestCryptoRNGConcurrent(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	table, _ := set.Table("bronze")
	rng := NewCryptoRNG()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				if r := rng.IntN(Permille); r < 0 || r >= Permille {
					t.Errorf("IntN out of range: %d", r)
					return
				}
				Select(table, rng)
			}
		}()
	}
	wg.Wait()
}
