package insight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
)

func labeledTable(t *testing.T) *dataset.Table {
	t.Helper()
	cols := []string{"Purchase Amount (USD)", "Discount Applied", "Frequency of Purchases", "Cluster"}
	rows := [][]string{
		{"10", "Yes", "Weekly", "1"},
		{"20", "No", "Weekly", "1"},
		{"30", "Yes", "Monthly", "1"},
		{"40", "No", "Weekly", "1"},
		{"50", "no", "Annually", "1"},
		{"60", "YES", "Monthly", "0"},
		{"70", "No", "Weekly", "0"},
		{"80", "No", "Monthly", "0"},
		{"90", "No", "Weekly", "0"},
		{"100", "No", "Annually", "0"},
	}
	return dataset.New("shoppers", cols, rows)
}

func TestStatementsChecklistOrder(t *testing.T) {
	got := Collect(Statements(labeledTable(t), DefaultColumns()))
	want := []string{
		"Average customer spending is $55.00.",
		"Cluster 0 contains the highest number of customers (5 of 10), indicating the dominant shopper group.",
		"5 customers spend above average and are ideal targets for premium offers.",
		"3 customers are influenced by discounts, suggesting promotions strongly affect purchases.",
		"Purchase frequency is categorical (most common: Weekly), so no numeric average is reported.",
	}
	assert.Equal(t, want, got)
}

func TestStatementsRestartable(t *testing.T) {
	seq := Statements(labeledTable(t), DefaultColumns())
	first := Collect(seq)
	second := Collect(seq)
	require.Len(t, first, 5)
	assert.Equal(t, first, second)
}

func TestStatementsEarlyStop(t *testing.T) {
	var got []string
	for s := range Statements(labeledTable(t), DefaultColumns()) {
		got = append(got, s)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
}

func TestStatementsSkipMissingDiscount(t *testing.T) {
	tbl := labeledTable(t)
	cols := DefaultColumns()
	cols.Discount = "Promo Code Used"
	got := Collect(Statements(tbl, cols))
	require.Len(t, got, 4)
	for _, s := range got {
		assert.NotContains(t, s, "discount")
	}
}

func TestStatementsNumericFrequency(t *testing.T) {
	tbl := dataset.New("f", []string{"Frequency of Purchases", "Cluster"}, [][]string{
		{"2", "0"}, {"n/a", "0"}, {"4", "1"},
	})
	got := Collect(Statements(tbl, DefaultColumns()))
	require.Len(t, got, 2)
	assert.Equal(t, "Average purchase frequency is 3.0, showing moderate repeat buying behavior.", got[1])
}

func TestStatementsNoParsableAmounts(t *testing.T) {
	tbl := dataset.New("a", []string{"Purchase Amount (USD)"}, [][]string{{"?"}, {""}})
	assert.Empty(t, Collect(Statements(tbl, DefaultColumns())))
}

func TestDominantClusterTieLowestLabel(t *testing.T) {
	tbl := dataset.New("tie", []string{"Cluster"}, [][]string{{"10"}, {"2"}, {"10"}, {"2"}, {"3"}})
	got := Collect(Statements(tbl, DefaultColumns()))
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "Cluster 2 contains"), got[0])
}

func TestGeneratorCustomRules(t *testing.T) {
	rows := Rule{
		Name:     "rows",
		Requires: func(Columns) []string { return nil },
		Render: func(t *dataset.Table, _ Columns) (string, bool) {
			return "rows", t.Len() > 0
		},
	}
	g := NewGenerator(DefaultColumns(), []Rule{rows})
	assert.Equal(t, []string{"rows"}, Collect(g.Statements(labeledTable(t))))
	assert.Empty(t, Collect(g.Statements(dataset.New("e", []string{"x"}, nil))))
}

func TestProfiles(t *testing.T) {
	got := Profiles(labeledTable(t), DefaultColumns(), []string{"Purchase Amount (USD)", "Age"})
	require.Len(t, got, 2)
	assert.Equal(t, "0", got[0].Label)
	assert.Equal(t, 5, got[0].Size)
	assert.InDelta(t, 0.5, got[0].Share, 1e-12)
	assert.InDelta(t, 80.0, got[0].Means["Purchase Amount (USD)"], 1e-9)
	assert.InDelta(t, 30.0, got[1].Means["Purchase Amount (USD)"], 1e-9)
	_, hasAge := got[0].Means["Age"]
	assert.False(t, hasAge)

	assert.Nil(t, Profiles(labeledTable(t), Columns{Cluster: "Segment"}, nil))
}

func TestLessLabel(t *testing.T) {
	assert.True(t, lessLabel("2", "10"))
	assert.True(t, lessLabel("9", "a"))
	assert.False(t, lessLabel("b", "a"))
	assert.True(t, lessLabel("a", "b"))
}
