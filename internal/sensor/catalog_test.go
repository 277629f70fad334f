package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogValid(t *testing.T) {
	specs := append(Catalog(Hz(1000)), Reference())
	seen := make(map[string]bool)
	for _, s := range specs {
		require.NoError(t, s.Validate(), s.ID)
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}
	assert.Equal(t, Hz(1), Reference().Rate)
}

func TestCatalogSourcesFinite(t *testing.T) {
	for _, spec := range Catalog(Hz(200)) {
		src, err := NewSource(spec, 10*time.Second, 1337)
		require.NoError(t, err)
		samples := drain(t, src)
		require.Len(t, samples, 2000, spec.ID)
		if spec.IsVector() {
			assert.Len(t, samples[0].Vector, spec.Width)
		}
	}
}
