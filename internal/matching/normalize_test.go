package matching

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDistance(t *testing.T) {
	require.Nil(t, NormalizeDistance(nil, "m"))

	// Canonical unit is the identity.
	require.Equal(t, 1500.0, *NormalizeDistance(fp(1500), "m"))

	require.Equal(t, 1500.0, *NormalizeDistance(fp(1.5), "km"))

	// Unrecognized units pass the raw value through, best effort.
	require.Equal(t, 1500.0, *NormalizeDistance(fp(1500), "yd"))
	require.Equal(t, 1500.0, *NormalizeDistance(fp(1500), ""))
}

func TestNormalizeEnergy(t *testing.T) {
	require.Nil(t, NormalizeEnergy(nil, "kcal"))
	require.Equal(t, 320.0, *NormalizeEnergy(fp(320), "kcal"))
	require.Equal(t, 320.0, *NormalizeEnergy(fp(320000), "cal"))
	require.Equal(t, 320.0, *NormalizeEnergy(fp(320), "J"))
}

func TestSanitizeMalformedValues(t *testing.T) {
	require.Nil(t, Sanitize(fp(math.NaN())))
	require.Nil(t, Sanitize(fp(math.Inf(1))))
	require.Nil(t, Sanitize(fp(math.Inf(-1))))
	require.Nil(t, Sanitize(fp(-1)))
	require.Equal(t, 0.0, *Sanitize(fp(0)))
	require.Equal(t, 42.0, *Sanitize(fp(42)))
}

func TestWorkoutIDFallbackChain(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	id, ok := WorkoutID("uuid-1", "id-1", "session-1", &start, &end, 46)
	require.True(t, ok)
	require.Equal(t, "uuid-1", id)

	id, ok = WorkoutID("", "id-1", "session-1", &start, &end, 46)
	require.True(t, ok)
	require.Equal(t, "id-1", id)

	id, ok = WorkoutID("", "", "session-1", &start, &end, 46)
	require.True(t, ok)
	require.Equal(t, "session-1", id)

	id, ok = WorkoutID("", "", "", &start, &end, 46)
	require.True(t, ok)
	require.Equal(t, "2024-06-01T08:00:00Z-2024-06-01T08:30:00Z-46", id)

	// No identifier source at all: the workout is not identifiable.
	_, ok = WorkoutID("", "", "", &start, nil, 46)
	require.False(t, ok)
	_, ok = WorkoutID("", "", "", nil, nil, 46)
	require.False(t, ok)
}
