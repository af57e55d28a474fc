package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := "\ufeffTime, RTWP ,SINR\n2024-01-01,-95,15\n2024-01-02,-96\n2024-01-03,-97,14,extra\n"

	tbl, err := Parse([]byte(data), "cells.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"Time", "RTWP", "SINR"}, tbl.Headers)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 1, tbl.Skipped)
	assert.Equal(t, []string{"2024-01-02", "-96", ""}, tbl.Rows[1])
	assert.Equal(t, "cells.csv", tbl.Name)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil, "empty.csv")
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestColumn(t *testing.T) {
	tbl, err := Read(strings.NewReader("A,B\n1,2\n3,4\n"), "x")
	require.NoError(t, err)

	assert.Equal(t, 1, tbl.ColumnIndex("B"))
	assert.Equal(t, -1, tbl.ColumnIndex("C"))
	assert.Equal(t, []string{"2", "4"}, tbl.Column(1))
}

func TestIsMissing(t *testing.T) {
	for _, cell := range []string{"", " ", "NaN", "null", "N/A"} {
		assert.True(t, IsMissing(cell), cell)
	}
	assert.False(t, IsMissing("0"))
	assert.False(t, IsMissing("abc"))
}
