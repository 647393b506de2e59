// Package simulator is the facade that wires the quantum, attack,
// reconciliation, privacy-amplification, and decoy-state packages into a
// single run_simulation/run_parameter_sweep entry point, and owns the
// run history and per-user key cache described in spec 4.11.
package simulator

import (
	"fmt"

	"github.com/jaskrrish/qkdsim/internal/attack"
	"github.com/jaskrrish/qkdsim/internal/decoy"
	"github.com/jaskrrish/qkdsim/internal/privacyamp"
	"github.com/jaskrrish/qkdsim/internal/reconcile"
)

// Parameters is SimulationParameters from spec 6.
type Parameters struct {
	NumQubits int

	ChannelLengthKm        float64
	ChannelAttenuationDB   float64
	WavelengthNm           float64
	ChannelDepolarization  float64
	TemperatureC           float64

	PhotonSourceEfficiency float64
	DetectorEfficiency     float64
	DetectorDarkCountRate  float64
	DetectorDeadTime       float64
	DetectorTimingJitter   float64

	AttackType       attack.Type
	AttackParameters map[string]float64

	UseAdvancedReconciliation bool
	ReconciliationMethod      reconcile.Method

	UseAdvancedPrivacyAmplification bool
	PrivacyAmplificationMethod      privacyamp.Method

	UseDecoyStates       bool
	DecoyStateParameters decoy.Parameters
}

// DefaultParameters mirrors the reference implementation's tuned defaults.
func DefaultParameters() Parameters {
	return Parameters{
		NumQubits:                       1000,
		ChannelLengthKm:                 10,
		ChannelAttenuationDB:            0.2,
		WavelengthNm:                    1550,
		ChannelDepolarization:           0.01,
		TemperatureC:                    20,
		PhotonSourceEfficiency:          0.9,
		DetectorEfficiency:              0.8,
		DetectorDarkCountRate:           100,
		DetectorDeadTime:                50,
		DetectorTimingJitter:            0.1,
		AttackType:                      attack.NoAttack,
		UseAdvancedReconciliation:       false,
		ReconciliationMethod:            reconcile.MethodCascade,
		UseAdvancedPrivacyAmplification: false,
		PrivacyAmplificationMethod:      privacyamp.MethodToeplitz,
		UseDecoyStates:                  false,
		DecoyStateParameters:            decoy.DefaultParameters(),
	}
}

// Validate enforces spec 6's parameter ranges, failing fast before a
// simulation is started (per spec 7's "parameter validation" error kind).
func (p Parameters) Validate() error {
	type bound struct {
		name       string
		value, lo, hi float64
	}
	bounds := []bound{
		{"num_qubits", float64(p.NumQubits), 8, 10000},
		{"channel_length", p.ChannelLengthKm, 0.1, 300},
		{"channel_attenuation", p.ChannelAttenuationDB, 0.05, 1.0},
		{"wavelength", p.WavelengthNm, 800, 1600},
		{"channel_depolarization", p.ChannelDepolarization, 0, 0.1},
		{"photon_source_efficiency", p.PhotonSourceEfficiency, 0.5, 0.95},
		{"detector_efficiency", p.DetectorEfficiency, 0.1, 0.95},
	}
	for _, b := range bounds {
		if b.value < b.lo || b.value > b.hi {
			return fmt.Errorf("simulator: %s=%v out of range [%v,%v]", b.name, b.value, b.lo, b.hi)
		}
	}
	return nil
}
