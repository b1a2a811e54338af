package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"github.com/KaramelBytes/shopseg-cli/internal/features"
	"github.com/KaramelBytes/shopseg-cli/internal/segment"
)

const shoppersCSV = `Customer ID, Age ,Gender,Purchase Amount (USD),Frequency of Purchases,Discount Applied
1,25,Male,10,Weekly,Yes
2,31,Female,20,Monthly,No
3,40,Male,30,Weekly,Yes
4,22,Female,40,Annually,No
5,55,Male,50,Weekly,No
6,61,Female,60,Monthly,No
7,38,Male,70,Weekly,Yes
8,N/A,Female,80,Monthly,No
9,45,Male,90,Weekly,No
10,29,Female,100,Annually,No
`

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func amountsOnly(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Purchase Amount (USD)\n")
	for i := 1; i <= 10; i++ {
		b.WriteString(strconv.Itoa(i * 10))
		b.WriteString("\n")
	}
	return writeFixture(t, "amounts.csv", b.String())
}

func TestRunTenAmountsTwoClusters(t *testing.T) {
	opts := DefaultOptions()
	opts.Segment.K = 2
	rep, err := Run(context.Background(), amountsOnly(t), opts)
	require.NoError(t, err)

	assert.Equal(t, 10, rep.Rows)
	assert.Equal(t, 2, rep.K)
	labels, ok := rep.Labeled.Column("Cluster")
	require.True(t, ok)
	distinct := map[string]bool{}
	for _, l := range labels {
		distinct[l] = true
	}
	assert.Len(t, distinct, 2)
	require.NotEmpty(t, rep.Insights)
	assert.Equal(t, "Average customer spending is $55.00.", rep.Insights[0])
	assert.NotEmpty(t, rep.ID)
}

func TestRunMissingInput(t *testing.T) {
	_, err := Run(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInputNotFound))
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, amountsOnly(t), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreprocessNoFeatures(t *testing.T) {
	path := writeFixture(t, "cats.csv", "Gender,Season\nMale,Winter\nFemale,Summer\n")
	_, err := Preprocess(path, "", DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, features.ErrMissingFeatures)
	var mfe *features.MissingFeatureError
	assert.True(t, errors.As(err, &mfe))
}

func TestPreprocessWritesProcessed(t *testing.T) {
	in := writeFixture(t, "shoppers.csv", shoppersCSV)
	out := filepath.Join(t.TempDir(), "out", "processed.csv")
	p, err := Preprocess(in, out, DefaultOptions())
	require.NoError(t, err)

	back, err := dataset.ReadCSV(out, dataset.Options{})
	require.NoError(t, err)
	assert.Equal(t, p.Features.Table.Columns, back.Columns)
	assert.Equal(t, p.Features.Table.Rows, back.Rows)
	assert.Equal(t, "Age", p.Raw.Columns[1])
	assert.Contains(t, p.Features.Skipped, "Review Rating")
}

func TestClusterDoesNotMutateRaw(t *testing.T) {
	in := writeFixture(t, "shoppers.csv", shoppersCSV)
	p, err := Preprocess(in, "", DefaultOptions())
	require.NoError(t, err)
	before := p.Raw.Clone()

	opts := DefaultOptions()
	opts.Segment.K = 3
	labeled, model, err := Cluster(p, opts)
	require.NoError(t, err)
	assert.Equal(t, before, p.Raw)
	assert.Equal(t, len(p.Raw.Columns)+1, len(labeled.Columns))
	assert.Equal(t, 3, model.K)
}

func TestClusterTooManyClusters(t *testing.T) {
	in := writeFixture(t, "two.csv", "Age\n1\n2\n")
	p, err := Preprocess(in, "", DefaultOptions())
	require.NoError(t, err)
	_, _, err = Cluster(p, DefaultOptions())
	assert.ErrorIs(t, err, segment.ErrTooManyClusters)
}

func TestSummarizeIdempotentAndDiscountOmitted(t *testing.T) {
	body := strings.ReplaceAll(shoppersCSV, ",Discount Applied", ",Coupon")
	in := writeFixture(t, "nodiscount.csv", body)
	p, err := Preprocess(in, "", DefaultOptions())
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Segment.K = 2
	labeled, _, err := Cluster(p, opts)
	require.NoError(t, err)

	var first, second []string
	for s := range Summarize(labeled, opts.Columns) {
		first = append(first, s)
	}
	for s := range Summarize(labeled, opts.Columns) {
		second = append(second, s)
	}
	assert.Equal(t, first, second)
	require.Len(t, first, 4)
	for _, s := range first {
		assert.NotContains(t, s, "discounts")
	}
}

func TestRunWritesLabeledAndRenders(t *testing.T) {
	in := writeFixture(t, "shoppers.csv", shoppersCSV)
	opts := DefaultOptions()
	opts.Segment.K = 2
	opts.LabeledPath = filepath.Join(t.TempDir(), "labeled.csv")
	rep, err := Run(context.Background(), in, opts)
	require.NoError(t, err)

	back, err := dataset.ReadCSV(opts.LabeledPath, dataset.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Cluster", back.Columns[len(back.Columns)-1])
	assert.Equal(t, 10, back.Len())

	assert.Equal(t, []string{"Female", "Male"}, rep.Encodings["Gender"])
	require.Len(t, rep.Profiles, 2)

	md := rep.Markdown()
	for _, sec := range []string{"[RUN SUMMARY]", "[FEATURES]", "[ENCODINGS]", "[CLUSTER PROFILES]", "[INSIGHTS]", "[NOTES]"} {
		assert.Contains(t, md, sec)
	}

	js, err := rep.Render("json")
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(js, &decoded))
	assert.Equal(t, rep.ID, decoded.ID)
	assert.Equal(t, rep.Insights, decoded.Insights)
	assert.Nil(t, decoded.Labeled)

	ys, err := rep.Render("yaml")
	require.NoError(t, err)
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(ys, &y))
	assert.Equal(t, rep.ID, y["id"])

	txt, err := rep.Render("text")
	require.NoError(t, err)
	assert.Equal(t, len(rep.Insights), strings.Count(string(txt), "\n"))

	_, err = rep.Render("xml")
	assert.Error(t, err)
}

func TestRunTableMatchesRun(t *testing.T) {
	in := writeFixture(t, "shoppers.csv", shoppersCSV)
	opts := DefaultOptions()
	opts.Segment.K = 2
	fromFile, err := Run(context.Background(), in, opts)
	require.NoError(t, err)

	tbl, err := dataset.ParseCSV(strings.NewReader(shoppersCSV), "upload", ',')
	require.NoError(t, err)
	fromTable, err := RunTable(context.Background(), tbl, opts)
	require.NoError(t, err)
	assert.Equal(t, fromFile.Insights, fromTable.Insights)
	assert.Equal(t, "upload", fromTable.Source)
}

func TestPreprocessHeaderOnly(t *testing.T) {
	in := writeFixture(t, "header.csv", "Age,Purchase Amount (USD)\n")
	_, err := Preprocess(in, "", DefaultOptions())
	assert.ErrorIs(t, err, features.ErrEmptyTable)
}

func TestPreprocessRaggedAndDuplicateHeaders(t *testing.T) {
	in := writeFixture(t, "messy.csv", "Age,Age,Purchase Amount (USD)\n30,31,10\n40,41\n50,51,30\n")
	p, err := Preprocess(in, "", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Age", "Purchase Amount (USD)"}, p.Features.FeatureNames)
	assert.InDelta(t, 20.0, p.Features.Medians["Purchase Amount (USD)"], 1e-12)
}
