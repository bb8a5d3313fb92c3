package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogInputsExpandsSerials(t *testing.T) {
	file, err := parseCatalog([]byte(`
actor: alice
articulos:
  - nombre: Laptop
    modelo: T14
    costoUnitario: "100.50"
    numerosSerie: [A1, " A2 "]
  - nombre: Mouse
    modelo: M185
    cantidad: 12
`))
	require.NoError(t, err)
	assert.Equal(t, "alice", file.Actor)

	inputs, err := file.inputs()
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	assert.Equal(t, "A1", *inputs[0].SerialNumber)
	assert.Equal(t, "A2", *inputs[1].SerialNumber)
	assert.Equal(t, 1, inputs[1].Quantity)
	assert.True(t, decimal.RequireFromString("100.50").Equal(inputs[0].UnitCost))

	assert.Nil(t, inputs[2].SerialNumber)
	assert.Equal(t, 12, inputs[2].Quantity)
	assert.True(t, inputs[2].UnitCost.IsZero())
}

func TestCatalogInputsRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing model":   "articulos:\n  - nombre: X\n    cantidad: 1\n",
		"zero quantity":   "articulos:\n  - nombre: X\n    modelo: Y\n",
		"bad cost":        "articulos:\n  - nombre: X\n    modelo: Y\n    cantidad: 1\n    costoUnitario: abc\n",
		"serial mismatch": "articulos:\n  - nombre: X\n    modelo: Y\n    cantidad: 3\n    numerosSerie: [a]\n",
		"blank serial":    "articulos:\n  - nombre: X\n    modelo: Y\n    numerosSerie: [\"  \"]\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			file, err := parseCatalog([]byte(raw))
			require.NoError(t, err)
			_, err = file.inputs()
			assert.Error(t, err)
		})
	}
}

func TestParseCatalogRequiresArticles(t *testing.T) {
	_, err := parseCatalog([]byte("actor: x\n"))
	assert.Error(t, err)

	_, err = parseCatalog([]byte("articulos: [unclosed"))
	assert.Error(t, err)
}

func TestLoadCatalogReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("articulos:\n  - nombre: A\n    modelo: B\n    cantidad: 2\n"), 0o600))

	file, err := loadCatalog(path)
	require.NoError(t, err)
	require.Len(t, file.Articles, 1)

	_, err = loadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
