package rainfall

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/forest-guardian/rainfall-cli/internal/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuery(t *testing.T, startYear, endYear int) *Query {
	t.Helper()
	months, err := period.MonthRanges(startYear, endYear)
	require.NoError(t, err)
	return &Query{
		Dataset:   "UCSB-CHG/CHIRPS/DAILY",
		Band:      "precipitation",
		Scale:     5000,
		Region:    earthengine.CollectionGeometry(earthengine.LoadTable("FAO/GAUL/2015/level0")),
		RegionKey: "Nigeria",
		Months:    months,
	}
}

func fn(t *testing.T, node *earthengine.ValueNode) *earthengine.FunctionInvocation {
	t.Helper()
	require.NotNil(t, node)
	require.NotNil(t, node.FunctionInvocationValue)
	return node.FunctionInvocationValue
}

func TestMonthlyMeanExpression_Shape(t *testing.T) {
	q := testQuery(t, 2018, 2024)
	month := q.Months[5]
	expr := q.MonthlyMeanExpression(month)

	// region, collection and the root
	require.Len(t, expr.Values, 3)

	root := fn(t, expr.Values[expr.Result])
	assert.Equal(t, "Image.reduceRegion", root.FunctionName)
	assert.Equal(t, "Reducer.mean", fn(t, root.Arguments["reducer"]).FunctionName)
	assert.Equal(t, 5000, root.Arguments["scale"].ConstantValue)
	assert.Equal(t, "0", root.Arguments["geometry"].ValueReference)

	clip := fn(t, root.Arguments["image"])
	assert.Equal(t, "Image.clip", clip.FunctionName)

	set := fn(t, clip.Arguments["input"])
	assert.Equal(t, "Element.set", set.FunctionName)
	assert.Equal(t, earthengine.TimeStartProperty, set.Arguments["key"].ConstantValue)
	assert.Equal(t, month.Start.UnixMilli(), set.Arguments["value"].ConstantValue)

	reduce := fn(t, set.Arguments["object"])
	assert.Equal(t, "ImageCollection.reduce", reduce.FunctionName)
	assert.Equal(t, "Reducer.sum", fn(t, reduce.Arguments["reducer"]).FunctionName)

	monthFilter := fn(t, reduce.Arguments["collection"])
	assert.Equal(t, "Collection.filter", monthFilter.FunctionName)
	assert.Equal(t, "1", monthFilter.Arguments["collection"].ValueReference)

	collection := fn(t, expr.Values["1"])
	bounds := fn(t, collection.Arguments["filter"])
	assert.Equal(t, "Filter.intersects", bounds.FunctionName)
	assert.Equal(t, "0", bounds.Arguments["rightValue"].ValueReference)

	byDate := fn(t, collection.Arguments["collection"])
	span := fn(t, fn(t, byDate.Arguments["filter"]).Arguments["leftValue"])
	assert.Equal(t, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), fn(t, span.Arguments["start"]).Arguments["value"].ConstantValue)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), fn(t, span.Arguments["end"]).Arguments["value"].ConstantValue)
}

func TestMeanImageExpression_AveragesEveryMonth(t *testing.T) {
	q := testQuery(t, 2018, 2024)
	expr, err := q.MeanImageExpression()
	require.NoError(t, err)

	root := fn(t, expr.Values[expr.Result])
	assert.Equal(t, "Image.unmask", root.FunctionName)
	assert.Equal(t, NoData, root.Arguments["value"].ConstantValue)

	clip := fn(t, root.Arguments["input"])
	rename := fn(t, clip.Arguments["input"])
	reduce := fn(t, rename.Arguments["input"])
	assert.Equal(t, "Reducer.mean", fn(t, reduce.Arguments["reducer"]).FunctionName)

	fromImages := fn(t, reduce.Arguments["collection"])
	assert.Equal(t, "ImageCollection.fromImages", fromImages.FunctionName)
	assert.Len(t, fromImages.Arguments["images"].ArrayValue.Values, 84)

	_, err = json.Marshal(expr)
	require.NoError(t, err)
}

func TestMonthlyTotal_KeepsReducerBandName(t *testing.T) {
	q := testQuery(t, 2018, 2018)
	expr := q.MonthlyMeanExpression(q.Months[0])

	set := fn(t, fn(t, fn(t, expr.Values[expr.Result]).Arguments["image"]).Arguments["input"])
	total := fn(t, set.Arguments["object"])
	assert.Equal(t, "ImageCollection.reduce", total.FunctionName)

	raw, err := json.Marshal(expr)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Image.rename")
}

func TestMeanImageExpression_SkipsMonthsNotStarted(t *testing.T) {
	defer func(now func() time.Time) { timeNow = now }(timeNow)
	timeNow = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

	q := testQuery(t, 2024, 2024)
	assert.Len(t, q.StartedMonths(), 3)

	expr, err := q.MeanImageExpression()
	require.NoError(t, err)
	root := fn(t, expr.Values[expr.Result])
	reduce := fn(t, fn(t, fn(t, root.Arguments["input"]).Arguments["input"]).Arguments["input"])
	fromImages := fn(t, reduce.Arguments["collection"])
	assert.Len(t, fromImages.Arguments["images"].ArrayValue.Values, 3)

	q = testQuery(t, 2025, 2025)
	_, err = q.MeanImageExpression()
	assert.Error(t, err)
}

func TestQueryValidate(t *testing.T) {
	q := testQuery(t, 2018, 2018)
	assert.NoError(t, q.Validate())

	q.Region = nil
	assert.Error(t, q.Validate())

	q = testQuery(t, 2018, 2018)
	q.Months = nil
	assert.Error(t, q.Validate())
}

func TestParseRegionMean(t *testing.T) {
	value, valid, err := parseRegionMean(json.RawMessage(`{"precipitation": 87.25}`), "precipitation")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, 87.25, value)

	value, valid, err = parseRegionMean(json.RawMessage(`{"precipitation_sum": 3.5}`), "precipitation")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, 3.5, value)

	_, valid, err = parseRegionMean(json.RawMessage(`{"precipitation": null}`), "precipitation")
	require.NoError(t, err)
	assert.False(t, valid)

	_, valid, err = parseRegionMean(json.RawMessage(`{}`), "precipitation")
	require.NoError(t, err)
	assert.False(t, valid)

	_, _, err = parseRegionMean(json.RawMessage(`{"a": 1, "b": 2}`), "precipitation")
	assert.Error(t, err)

	_, _, err = parseRegionMean(json.RawMessage(`[1]`), "precipitation")
	assert.Error(t, err)
}
