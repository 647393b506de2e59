package attack

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/qkdsim/internal/quantum"
)

func TestInterceptResendResendsValidQubit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e := NewInterceptResend()
	q := quantum.FromBasisState(quantum.Computational, quantum.One)
	out := e.Intercept(q, Context{}, rng)
	require.Len(t, e.History(), 1)
	_ = out
}

func TestDetectorFlagsHighQBER(t *testing.T) {
	d := NewDetector()
	result := d.Detect(0.3, 1000, nil, 0)
	require.True(t, result.AttackDetected)
	require.Equal(t, InterceptResend, result.AttackType)
}

func TestDetectorNoAttackLowQBER(t *testing.T) {
	d := NewDetector()
	result := d.Detect(0.01, 1000, nil, 0)
	require.False(t, result.AttackDetected)
	require.Equal(t, NoAttack, result.AttackType)
}

func TestDetectorFlagsDeclaredStrength(t *testing.T) {
	d := NewDetector()
	result := d.Detect(0.02, 1000, nil, 0.5)
	require.True(t, result.AttackDetected)
	require.Equal(t, 0.5, result.Confidence)
}
