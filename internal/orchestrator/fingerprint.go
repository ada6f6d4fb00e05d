package orchestrator

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
	"github.com/rpgo/wealth-simulator/internal/domain"
)

// Fingerprint identifies a computation: the same input, rules version, kind
// and Monte Carlo settings always produce the same fingerprint.
type Fingerprint string

// fingerprintDoc is the canonical form that is hashed. Map keys are encoded
// in sorted order, so equal documents encode to equal bytes.
type fingerprintDoc struct {
	Kind       Kind                     `json:"kind"`
	Rules      string                   `json:"rules"`
	Input      *domain.ScenarioInput    `json:"input"`
	MonteCarlo *domain.MonteCarloConfig `json:"monte_carlo,omitempty"`
}

// FingerprintOf hashes a request under a rules version. Callback and
// worker settings do not take part: they change how a result is computed,
// not what it is.
func FingerprintOf(req Request, rulesVersion string) (Fingerprint, error) {
	doc := fingerprintDoc{Kind: req.Kind, Rules: rulesVersion, Input: req.Input}
	if req.Kind == KindMonteCarlo {
		cfg := domain.MonteCarloConfig{}
		if req.MonteCarlo != nil {
			cfg = *req.MonteCarlo
		}
		if cfg.Iterations == 0 {
			cfg.Iterations = domain.DefaultIterations
		}
		cfg.Progress = nil
		cfg.Workers = 0
		doc.MonteCarlo = &cfg
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode fingerprint: %w", err)
	}
	return Fingerprint(fmt.Sprintf("%s-%016x", req.Kind, xxhash.Sum64(b))), nil
}
