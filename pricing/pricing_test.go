package pricing

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		s, err := NewStore("")
		assert.Nil(t, s)
		assert.NotNil(t, err)
	})
	t.Run("missing file yields an empty catalog", func(t *testing.T) {
		s, err := NewStore(filepath.Join(t.TempDir(), "pricing.json"))
		require.NoError(t, err)
		require.False(t, s.IsInterfaceNil())

		catalog := s.Catalog()
		assert.Empty(t, catalog.NCI)
		assert.Empty(t, catalog.NUS)
	})
}

func TestStore_AddRateAndPersistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pricing.json")

	s, err := NewStore(path)
	require.NoError(t, err)

	err = s.AddRate("nci", "NCI-PRO", Rate{Name: "NCI Pro", HourlyRate: 0.04, AnnualRate: 290, Unit: "core"})
	require.NoError(t, err)
	err = s.AddRate("nus", "NUS-STD", Rate{Name: "NUS Standard", HourlyRate: 0.025, AnnualRate: 190, Unit: "TiB"})
	require.NoError(t, err)

	err = s.AddRate("other", "X", Rate{})
	assert.True(t, errors.Is(err, ErrUnknownFamily))

	// a fresh store over the same file sees the persisted catalog
	reloaded, err := NewStore(path)
	require.NoError(t, err)
	catalog := reloaded.Catalog()
	require.Len(t, catalog.NCI, 1)
	require.Len(t, catalog.NUS, 1)
	assert.Equal(t, 0.04, catalog.NCI["NCI-PRO"].HourlyRate)
	assert.Equal(t, "TiB", catalog.NUS["NUS-STD"].Unit)
}

func TestStore_SetActive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pricing.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.AddRate("nci", "NCI-PRO", Rate{HourlyRate: 0.04}))
	require.NoError(t, s.AddRate("nus", "NUS-STD", Rate{HourlyRate: 0.025}))

	// nothing active yet
	_, nciOK, _, nusOK := s.ActiveRates()
	assert.False(t, nciOK)
	assert.False(t, nusOK)

	t.Run("unknown code", func(t *testing.T) {
		err = s.SetActive("nci", "NCI-ULTIMATE")
		assert.True(t, errors.Is(err, ErrUnknownCode))
	})
	t.Run("unknown family", func(t *testing.T) {
		err = s.SetActive("gpu", "NCI-PRO")
		assert.True(t, errors.Is(err, ErrUnknownFamily))
	})
	t.Run("should work and persist", func(t *testing.T) {
		require.NoError(t, s.SetActive("nci", "NCI-PRO"))
		require.NoError(t, s.SetActive("nus", "NUS-STD"))

		nci, nciOK, nus, nusOK := s.ActiveRates()
		require.True(t, nciOK)
		require.True(t, nusOK)
		assert.Equal(t, 0.04, nci.HourlyRate)
		assert.Equal(t, 0.025, nus.HourlyRate)

		reloaded, err := NewStore(path)
		require.NoError(t, err)
		assert.Equal(t, "NCI-PRO", reloaded.Catalog().Active.NCI)
		assert.Equal(t, "NUS-STD", reloaded.Catalog().Active.NUS)
	})
}

func TestStore_CatalogReturnsACopy(t *testing.T) {
	t.Parallel()

	s, err := NewStore(filepath.Join(t.TempDir(), "pricing.json"))
	require.NoError(t, err)
	require.NoError(t, s.AddRate("nci", "NCI-PRO", Rate{HourlyRate: 0.04}))

	catalog := s.Catalog()
	catalog.NCI["NCI-PRO"] = Rate{HourlyRate: 99}

	assert.Equal(t, 0.04, s.Catalog().NCI["NCI-PRO"].HourlyRate)
}
