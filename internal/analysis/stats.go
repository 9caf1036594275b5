package analysis

import (
	"math"
	"sort"
	"time"

	"erplens/internal/dataset"
	"erplens/internal/quality"
)

// Status tags the outcome of a statistical heuristic. Heuristics never
// fail with errors: absent columns and thin data are ordinary states of
// real-world spreadsheets, not exceptional conditions.
type Status int

const (
	StatusOK Status = iota
	StatusInsufficientData
	StatusMissingColumns
)

// String returns the lowercase wire name of the status
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInsufficientData:
		return "insufficient_data"
	case StatusMissingColumns:
		return "missing_columns"
	default:
		return "unknown"
	}
}

// PeriodValue is one monthly bucket of an aggregated time series
type PeriodValue struct {
	Period string
	Value  float64
	Count  int
}

// TrendResult describes month-over-month movement of a value column.
// Direction is "rising" above +5% MoM, "falling" below -5%, otherwise
// "stable". Anomalies lists periods more than two standard deviations
// from the series mean.
type TrendResult struct {
	Status       Status
	CurrentValue float64
	PriorValue   float64
	MoMChangePct float64
	QoQChangePct float64
	Direction    string
	Anomalies    map[string]float64
	DataPoints   int
	Series       []PeriodValue
}

// Trend resamples the value column into monthly sums keyed by the date
// column and reports the latest movement. At least two populated months
// are required.
func Trend(d *dataset.Dataset, valueCol, dateCol string) TrendResult {
	if !d.HasColumn(valueCol) || !d.HasColumn(dateCol) {
		return TrendResult{Status: StatusMissingColumns}
	}

	series := monthlySum(d, dateCol, valueCol)
	if len(series) < 2 {
		return TrendResult{Status: StatusInsufficientData, DataPoints: len(series)}
	}

	latest := series[len(series)-1].Value
	prior := series[len(series)-2].Value
	momChange := 0.0
	if prior != 0 {
		momChange = (latest - prior) / prior * 100
	}

	qoqChange := momChange
	if len(series) >= 3 {
		recentAvg := meanOf(seriesValues(series[len(series)-3:]))
		priorAvg := recentAvg
		if len(series) > 3 {
			priorAvg = meanOf(seriesValues(series[:len(series)-3]))
		}
		if priorAvg != 0 {
			qoqChange = (recentAvg - priorAvg) / priorAvg * 100
		} else {
			qoqChange = 0
		}
	}

	direction := "stable"
	switch {
	case momChange > 5:
		direction = "rising"
	case momChange < -5:
		direction = "falling"
	}

	values := seriesValues(series)
	m := meanOf(values)
	sd := stddevOf(values)
	anomalies := make(map[string]float64)
	for _, pv := range series {
		if sd > 0 && math.Abs(pv.Value-m) > 2*sd {
			anomalies[pv.Period] = pv.Value
		}
	}

	return TrendResult{
		Status:       StatusOK,
		CurrentValue: latest,
		PriorValue:   prior,
		MoMChangePct: round2(momChange),
		QoQChangePct: round2(qoqChange),
		Direction:    direction,
		Anomalies:    anomalies,
		DataPoints:   len(series),
		Series:       series,
	}
}

// VarianceLine is one row-level overrun in a variance analysis
type VarianceLine struct {
	Label       string
	Variance    float64
	VariancePct float64
}

// VarianceResult compares actuals against plan. A variance over 10% in
// either direction is flagged as material.
type VarianceResult struct {
	Status           Status
	TotalActual      float64
	TotalPlanned     float64
	TotalVariance    float64
	TotalVariancePct float64
	IsOverBudget     bool
	Material         bool
	TopOverruns      []VarianceLine
}

// Variance computes row-wise actual-minus-planned and the overall
// variance. Rows with a zero planned value get a 0% row variance rather
// than an infinity. labelCol names the overrun rows; when the column is
// absent the actual value is used as the label.
func Variance(d *dataset.Dataset, actualCol, plannedCol, labelCol string) VarianceResult {
	actualIdx, okA := d.ColumnIndex(actualCol)
	plannedIdx, okP := d.ColumnIndex(plannedCol)
	if !okA || !okP {
		return VarianceResult{Status: StatusMissingColumns}
	}
	labelIdx, hasLabel := d.ColumnIndex(labelCol)

	var totalActual, totalPlanned float64
	var lines []VarianceLine
	rows := 0
	for i := range d.Rows {
		actual, okA := dataset.ToFloat(d.Cell(i, actualIdx))
		planned, okP := dataset.ToFloat(d.Cell(i, plannedIdx))
		if !okA || !okP {
			continue
		}
		rows++
		totalActual += actual
		totalPlanned += planned

		variance := actual - planned
		pct := 0.0
		if planned != 0 {
			pct = variance / planned * 100
		}
		label := FormatAmount(actual)
		if hasLabel {
			if s := d.String(i, labelIdx); s != "" {
				label = s
			}
		}
		lines = append(lines, VarianceLine{Label: label, Variance: variance, VariancePct: round2(pct)})
	}
	if rows == 0 {
		return VarianceResult{Status: StatusInsufficientData}
	}

	totalVariance := totalActual - totalPlanned
	totalPct := 0.0
	if totalPlanned != 0 {
		totalPct = totalVariance / totalPlanned * 100
	}

	var overruns []VarianceLine
	for _, l := range lines {
		if l.Variance > 0 {
			overruns = append(overruns, l)
		}
	}
	sort.SliceStable(overruns, func(i, j int) bool { return overruns[i].Variance > overruns[j].Variance })
	if len(overruns) > 5 {
		overruns = overruns[:5]
	}

	return VarianceResult{
		Status:           StatusOK,
		TotalActual:      totalActual,
		TotalPlanned:     totalPlanned,
		TotalVariance:    totalVariance,
		TotalVariancePct: round2(totalPct),
		IsOverBudget:     totalVariance > 0,
		Material:         math.Abs(totalPct) > 10,
		TopOverruns:      overruns,
	}
}

// ParetoItem is one contributor in a Pareto ranking
type ParetoItem struct {
	Rank            int
	Label           string
	Value           float64
	ContributionPct float64
	CumulativePct   float64
}

// ParetoResult is an 80/20 concentration analysis over a grouped value
type ParetoResult struct {
	Status                    Status
	TotalValue                float64
	ItemsFor80Pct             int
	ItemsFor80ContributionPct float64
	Top20ContributionPct      float64
	Concentration             string
	TopContributors           []ParetoItem
	FullPareto                []ParetoItem
}

// Pareto aggregates the value column by category, ranks contributors
// descending, and counts how many items it takes to reach 80% of the
// total. Concentration is labeled HIGH/MEDIUM/LOW against the supplied
// thresholds, which are the share of value held by the top 20% of items.
func Pareto(d *dataset.Dataset, categoryCol, valueCol string, topN int, highPct, mediumPct float64) ParetoResult {
	if !d.HasColumn(categoryCol) || !d.HasColumn(valueCol) {
		return ParetoResult{Status: StatusMissingColumns}
	}

	groups := GroupSum(d, categoryCol, valueCol)
	if len(groups) == 0 {
		return ParetoResult{Status: StatusInsufficientData}
	}
	total := 0.0
	for _, g := range groups {
		total += g.Value
	}
	if total == 0 {
		return ParetoResult{Status: StatusInsufficientData}
	}

	full := make([]ParetoItem, len(groups))
	cumulative := 0.0
	itemsFor80 := len(groups)
	found80 := false
	for i, g := range groups {
		cumulative += g.Value
		cumPct := cumulative / total * 100
		full[i] = ParetoItem{
			Rank:            i + 1,
			Label:           g.Label,
			Value:           g.Value,
			ContributionPct: round2(g.Value / total * 100),
			CumulativePct:   round2(cumPct),
		}
		if !found80 && cumPct > 80 {
			itemsFor80 = i + 1
			found80 = true
		}
	}

	itemsFor80Value := 0.0
	for _, item := range full[:itemsFor80] {
		itemsFor80Value += item.Value
	}

	top20Count := len(groups) / 5
	if len(groups) <= 5 {
		top20Count = 1
	}
	top20Value := 0.0
	for _, item := range full[:top20Count] {
		top20Value += item.Value
	}
	top20Pct := top20Value / total * 100

	concentration := "LOW"
	switch {
	case top20Pct > highPct:
		concentration = "HIGH"
	case top20Pct > mediumPct:
		concentration = "MEDIUM"
	}

	top := full
	if len(top) > topN {
		top = top[:topN]
	}

	return ParetoResult{
		Status:                    StatusOK,
		TotalValue:                total,
		ItemsFor80Pct:             itemsFor80,
		ItemsFor80ContributionPct: round2(itemsFor80Value / total * 100),
		Top20ContributionPct:      round2(top20Pct),
		Concentration:             concentration,
		TopContributors:           top,
		FullPareto:                full,
	}
}

// RatioResult summarizes a row-wise ratio between two columns
type RatioResult struct {
	Status       Status
	Name         string
	CurrentValue float64
	AverageValue float64
	MinValue     float64
	MaxValue     float64
	DataPoints   int
}

// Ratio divides the numerator column by the denominator column row by
// row, dropping rows with a zero or unparsable denominator.
func Ratio(d *dataset.Dataset, numeratorCol, denominatorCol, name string) RatioResult {
	numIdx, okN := d.ColumnIndex(numeratorCol)
	denIdx, okD := d.ColumnIndex(denominatorCol)
	if !okN || !okD {
		return RatioResult{Status: StatusMissingColumns, Name: name}
	}

	var ratios []float64
	for i := range d.Rows {
		num, okN := dataset.ToFloat(d.Cell(i, numIdx))
		den, okD := dataset.ToFloat(d.Cell(i, denIdx))
		if !okN || !okD || den == 0 {
			continue
		}
		ratios = append(ratios, num/den)
	}
	if len(ratios) == 0 {
		return RatioResult{Status: StatusInsufficientData, Name: name}
	}

	minVal, maxVal := ratios[0], ratios[0]
	for _, r := range ratios[1:] {
		if r < minVal {
			minVal = r
		}
		if r > maxVal {
			maxVal = r
		}
	}

	return RatioResult{
		Status:       StatusOK,
		Name:         name,
		CurrentValue: round4(ratios[len(ratios)-1]),
		AverageValue: round4(meanOf(ratios)),
		MinValue:     round4(minVal),
		MaxValue:     round4(maxVal),
		DataPoints:   len(ratios),
	}
}

// GroupTotal is one group in an aggregation, ordered by value descending
type GroupTotal struct {
	Label string
	Value float64
	Count int
}

// GroupSum aggregates the value column by the key column. Results are
// sorted by value descending with the label as a deterministic tie-break.
func GroupSum(d *dataset.Dataset, keyCol, valueCol string) []GroupTotal {
	return groupAgg(d, keyCol, valueCol, false)
}

// GroupMean aggregates the value column by the key column, averaging
// instead of summing. Same ordering guarantees as GroupSum.
func GroupMean(d *dataset.Dataset, keyCol, valueCol string) []GroupTotal {
	return groupAgg(d, keyCol, valueCol, true)
}

func groupAgg(d *dataset.Dataset, keyCol, valueCol string, mean bool) []GroupTotal {
	keyIdx, okK := d.ColumnIndex(keyCol)
	valIdx, okV := d.ColumnIndex(valueCol)
	if !okK || !okV {
		return nil
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string
	for i := range d.Rows {
		key := d.String(i, keyIdx)
		if key == "" {
			continue
		}
		value, ok := dataset.ToFloat(d.Cell(i, valIdx))
		if !ok {
			continue
		}
		if _, seen := sums[key]; !seen {
			order = append(order, key)
		}
		sums[key] += value
		counts[key]++
	}

	out := make([]GroupTotal, 0, len(order))
	for _, key := range order {
		value := sums[key]
		if mean {
			value /= float64(counts[key])
		}
		out = append(out, GroupTotal{Label: key, Value: value, Count: counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// firstColumn returns the first of the candidate columns present in
// the dataset. Cleaned datasets may carry the date under different
// canonical names depending on which alias the source file used.
func firstColumn(d *dataset.Dataset, candidates ...string) (string, bool) {
	for _, name := range candidates {
		if d.HasColumn(name) {
			return name, true
		}
	}
	return "", false
}

func sortGroupsDescending(groups []GroupTotal) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Value != groups[j].Value {
			return groups[i].Value > groups[j].Value
		}
		return groups[i].Label < groups[j].Label
	})
}

func sortGroupsAscending(groups []GroupTotal) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Value != groups[j].Value {
			return groups[i].Value < groups[j].Value
		}
		return groups[i].Label < groups[j].Label
	})
}

// monthlySum buckets the value column into calendar months keyed by the
// date column and sums each bucket. Only months present in the data
// appear; the result is sorted chronologically.
func monthlySum(d *dataset.Dataset, dateCol, valueCol string) []PeriodValue {
	return monthlyAgg(d, dateCol, valueCol, false)
}

// monthlyMean is monthlySum with per-bucket averaging
func monthlyMean(d *dataset.Dataset, dateCol, valueCol string) []PeriodValue {
	return monthlyAgg(d, dateCol, valueCol, true)
}

func monthlyAgg(d *dataset.Dataset, dateCol, valueCol string, mean bool) []PeriodValue {
	dateIdx, okD := d.ColumnIndex(dateCol)
	valIdx, okV := d.ColumnIndex(valueCol)
	if !okD || !okV {
		return nil
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := range d.Rows {
		t, ok := CellTime(d.Cell(i, dateIdx))
		if !ok {
			continue
		}
		value, ok := dataset.ToFloat(d.Cell(i, valIdx))
		if !ok {
			continue
		}
		key := t.Format("2006-01")
		sums[key] += value
		counts[key]++
	}

	periods := make([]string, 0, len(sums))
	for p := range sums {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	out := make([]PeriodValue, 0, len(periods))
	for _, p := range periods {
		value := sums[p]
		if mean {
			value /= float64(counts[p])
		}
		out = append(out, PeriodValue{Period: p, Value: value, Count: counts[p]})
	}
	return out
}

// CellTime coerces a cell to a timestamp. Cleaned datasets carry
// time.Time cells; raw string cells are parsed with the shared layouts.
func CellTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
	case string:
		return quality.ParseDate(v)
	}
	return time.Time{}, false
}

// rowsByDate returns the indices of rows with a parseable date in the
// named column, sorted chronologically. Rows without a date are dropped.
func rowsByDate(d *dataset.Dataset, dateCol string) []int {
	idx, ok := d.ColumnIndex(dateCol)
	if !ok {
		return nil
	}
	type dated struct {
		row int
		t   time.Time
	}
	var rows []dated
	for i := range d.Rows {
		if t, ok := CellTime(d.Cell(i, idx)); ok {
			rows = append(rows, dated{row: i, t: t})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out
}

func seriesValues(series []PeriodValue) []float64 {
	values := make([]float64, len(series))
	for i, pv := range series {
		values[i] = pv.Value
	}
	return values
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevOf is the sample standard deviation (n-1 denominator)
func stddevOf(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := meanOf(values)
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
