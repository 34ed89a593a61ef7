package sweep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/pattern"
)

func TestNew_Validation(t *testing.T) {
	_, err := New([]string{"seed"}, map[string][]string{"seed": {}})
	require.Error(t, err)

	_, err = New([]string{"seed"}, map[string][]string{"seed": {"1", "1"}})
	require.Error(t, err)

	_, err = New([]string{"seed", "chrom"}, map[string][]string{"seed": {"1"}})
	require.Error(t, err)

	_, err = New([]string{"seed"}, map[string][]string{"seed": {"1"}, "chrom": {"chr1"}})
	require.Error(t, err)
}

func TestValues_ReturnsCopy(t *testing.T) {
	s, err := FromMap(map[string][]string{"seed": {"1", "2"}})
	require.NoError(t, err)

	vals, ok := s.Values("seed")
	require.True(t, ok)
	vals[0] = "mutated"

	again, _ := s.Values("seed")
	assert.Equal(t, []string{"1", "2"}, again)
}

func TestProduct(t *testing.T) {
	s, err := New([]string{"seed", "chrom"}, map[string][]string{
		"seed":  {"1", "2"},
		"chrom": {"chr1", "chr2"},
	})
	require.NoError(t, err)

	got, err := s.Product([]string{"seed", "chrom"}, pattern.Binding{"model": "ooa"})
	require.NoError(t, err)

	keys := make([]string, 0, len(got))
	for _, b := range got {
		keys = append(keys, b.Key())
	}
	assert.Equal(t, []string{
		"chrom=chr1,model=ooa,seed=1",
		"chrom=chr2,model=ooa,seed=1",
		"chrom=chr1,model=ooa,seed=2",
		"chrom=chr2,model=ooa,seed=2",
	}, keys)
}

func TestProduct_NoNames(t *testing.T) {
	got, err := Empty().Product(nil, pattern.Binding{"seed": "3"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "seed=3", got[0].Key())
}

func TestProduct_MissingSweep(t *testing.T) {
	_, err := Empty().Product([]string{"demo_model"}, nil)

	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "demo_model", missing.Name)
}
