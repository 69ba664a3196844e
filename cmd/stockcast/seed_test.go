package main

import (
	"strings"
	"testing"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeedCSV(t *testing.T) {
	input := `sku,name,category,current_stock,unit_price,velocity,date,quantity,type
SKU-1,Cola 330ml,Beverages,120,1.25,high,2025-05-01,14,out
SKU-1,Cola 330ml,Beverages,120,1.25,high,2025-05-02,200,in
SKU-2,Crackers,,40,,weird,2025-05-01,3,OUTBOUND
`
	rows, err := parseSeedCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "SKU-1", first.product.SKU)
	assert.Equal(t, "Beverages", first.category)
	assert.Equal(t, 120, first.product.CurrentStock)
	require.NotNil(t, first.product.UnitPrice)
	assert.InDelta(t, 1.25, *first.product.UnitPrice, 1e-9)
	assert.Equal(t, domain.VelocityHigh, first.product.Velocity)
	assert.Equal(t, 14, first.movement.Quantity)
	assert.Equal(t, domain.MovementOutbound, first.movement.Type)
	assert.Equal(t, 2025, first.movement.Date.Year())

	assert.Equal(t, domain.MovementInbound, rows[1].movement.Type)

	last := rows[2]
	assert.Empty(t, last.category)
	assert.Nil(t, last.product.UnitPrice)
	assert.Equal(t, domain.VelocityMedium, last.product.Velocity)
	assert.Equal(t, domain.MovementOutbound, last.movement.Type)
}

func TestParseSeedCSV_Errors(t *testing.T) {
	header := "sku,name,category,current_stock,unit_price,velocity,date,quantity,type\n"
	cases := map[string]string{
		"missing column": "sku,name\nA,B\n",
		"bad date":       header + "A,B,C,1,,low,01/05/2025,1,out\n",
		"bad type":       header + "A,B,C,1,,low,2025-05-01,1,sideways\n",
		"negative qty":   header + "A,B,C,1,,low,2025-05-01,-4,out\n",
		"missing sku":    header + ",B,C,1,,low,2025-05-01,1,out\n",
	}
	for name, input := range cases {
		_, err := parseSeedCSV(strings.NewReader(input))
		assert.Error(t, err, name)
	}
}
