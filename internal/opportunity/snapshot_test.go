package opportunity

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCents_LenientDecoding(t *testing.T) {
	tests := []struct {
		raw  string
		want Cents
	}{
		{`1250`, 1250},
		{`"1250"`, 1250},
		{`" 99 "`, 99},
		{`12.99`, 12},
		{`"7.9"`, 7},
		{`-40`, 0},
		{`"-3.5"`, 0},
		{`"abc"`, 0},
		{`""`, 0},
		{`true`, 0},
		{`{}`, 0},
		{`1e3`, 1000},
		{`1e300`, 0},
	}

	for _, tt := range tests {
		var line Line
		err := json.Unmarshal([]byte(`{"fee":`+tt.raw+`}`), &line)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, line.Fee, tt.raw)
	}
}

func TestText_AcceptsNumbers(t *testing.T) {
	var line Line
	err := json.Unmarshal([]byte(`{"code":"D2740","tooth":14,"surface":null}`), &line)

	require.NoError(t, err)
	assert.Equal(t, Text("D2740"), line.Code)
	assert.Equal(t, Text("14"), line.Tooth)
	assert.Equal(t, Text(""), line.Surface)
}

func TestText_NonScalarBecomesEmpty(t *testing.T) {
	batch, err := DecodeBatch([]byte(`[{"patient_id": 1, "procedures": [{"code": true, "tooth": {"n": 3}, "surface": ["M"], "fee": 100}]}]`))

	require.NoError(t, err)
	require.Len(t, batch[0].Procedures, 1)
	line := batch[0].Procedures[0]
	assert.Equal(t, Text(""), line.Code)
	assert.Equal(t, Text(""), line.Tooth)
	assert.Equal(t, Text(""), line.Surface)
	assert.Equal(t, Cents(100), line.Fee)
}

func TestCount_OutOfRangeIsZero(t *testing.T) {
	batch, err := DecodeBatch([]byte(`[{"patient_id": 1, "plan_count": 5000000000}, {"patient_id": 2, "plan_count": 2147483647}]`))
	require.NoError(t, err)

	sum := batch[0].Summary()
	assert.Equal(t, 0, sum.PlanCount)

	sum = batch[1].Summary()
	assert.Equal(t, 2147483647, sum.PlanCount)
}

func TestSnapshotSummary_FeeSumSaturates(t *testing.T) {
	batch, err := DecodeBatch([]byte(`[{"patient_id": 1, "procedures": [
		{"code": "A", "fee": 9223372036854775000},
		{"code": "B", "fee": 9223372036854775000}
	]}]`))
	require.NoError(t, err)

	sum := batch[0].Summary()
	assert.Equal(t, int64(math.MaxInt64), sum.TotalFee)
}

func TestDecodeBatch_Shapes(t *testing.T) {
	batch, err := DecodeBatch([]byte(`[{"patient_id":1},{"patient_id":"2"}]`))
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, ExternalID(2), batch[1].PatientID)

	batch, err = DecodeBatch([]byte(`{"snapshots":[{"patient_id":3}]}`))
	require.NoError(t, err)
	require.Len(t, batch, 1)

	batch, err = DecodeBatch([]byte(`{"snapshots":[]}`))
	require.NoError(t, err)
	assert.Empty(t, batch)

	_, err = DecodeBatch([]byte(`{"patients":[]}`))
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = DecodeBatch([]byte(``))
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = DecodeBatch([]byte(`[{"patient_id":1,"procedures":"nope"}]`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestSnapshotSummary_DerivesTotals(t *testing.T) {
	var s Snapshot
	err := json.Unmarshal([]byte(`{
		"patient_id": 10,
		"last_plan_date": "2026-01-15",
		"procedures": [
			{"code": "D0120", "fee": 5000},
			{"code": "D1110", "fee": "abc"},
			{"code": "D2391"}
		]
	}`), &s)
	require.NoError(t, err)

	sum := s.Summary()

	assert.Equal(t, int64(10), sum.PatientID)
	assert.Equal(t, int64(5000), sum.TotalFee)
	assert.Equal(t, 3, sum.PlanCount)
	require.NotNil(t, sum.LastPlanDate)
	assert.Equal(t, "2026-01-15", sum.LastPlanDate.Format("2006-01-02"))
}

func TestSnapshotSummary_ExplicitTotalsWin(t *testing.T) {
	var s Snapshot
	err := json.Unmarshal([]byte(`{
		"patient_id": 10,
		"total_fee": "123456",
		"plan_count": 9,
		"procedures": [{"code": "D0120", "fee": 5000}]
	}`), &s)
	require.NoError(t, err)

	sum := s.Summary()

	assert.Equal(t, int64(123456), sum.TotalFee)
	assert.Equal(t, 9, sum.PlanCount)
	assert.Nil(t, sum.LastPlanDate)
}

func TestSnapshotSummary_NullTotalsFallBack(t *testing.T) {
	var s Snapshot
	err := json.Unmarshal([]byte(`{
		"patient_id": 10,
		"total_fee": null,
		"plan_count": null,
		"procedures": [{"code": "A", "fee": 100}, {"code": "B", "fee": 250}]
	}`), &s)
	require.NoError(t, err)

	sum := s.Summary()

	assert.Equal(t, int64(350), sum.TotalFee)
	assert.Equal(t, 2, sum.PlanCount)
}

func TestSnapshotSummary_BlankCodesTakeNoSlot(t *testing.T) {
	s := Snapshot{PatientID: 1}
	for _, code := range []string{"A", "", "C", "D", "E", "F", "G"} {
		s.Procedures = append(s.Procedures, Line{Code: Text(code)})
	}

	sum := s.Summary()

	assert.Equal(t, []string{"A", "C", "D", "E", "F", "G"}, sum.TopCodes)
	assert.Equal(t, 7, sum.PlanCount)
}

func TestSnapshotSummary_TruncatesTopCodes(t *testing.T) {
	s := Snapshot{PatientID: 1}
	for _, code := range []string{"C1", "C2", "", "C3", "C4", "C5", "C6", "C7", "C8", "C9"} {
		s.Procedures = append(s.Procedures, Line{Code: Text(code)})
	}

	sum := s.Summary()

	assert.Equal(t, []string{"C1", "C2", "C3", "C4", "C5", "C6"}, sum.TopCodes)
	assert.Equal(t, 10, sum.PlanCount)
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		wantErr bool
	}{
		{"valid", Snapshot{PatientID: 1, LastPlanDate: "2025-12-01"}, false},
		{"rfc3339 dates", Snapshot{PatientID: 1, BirthDate: "1980-05-06T00:00:00Z", LastPlanDate: "2025-12-01T09:30:00-05:00"}, false},
		{"blank dates", Snapshot{PatientID: 1, BirthDate: " "}, false},
		{"missing patient", Snapshot{}, true},
		{"bad date", Snapshot{PatientID: 1, LastPlanDate: "01/12/2025"}, true},
		{"bad birth date", Snapshot{PatientID: 1, BirthDate: "yesterday"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSnapshot), "expected ErrInvalidSnapshot, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSnapshotPatient(t *testing.T) {
	var s Snapshot
	err := json.Unmarshal([]byte(`{
		"patient_id": 44,
		"first_name": " Rosa ",
		"phone": 5550100,
		"guarantor_id": "43",
		"birth_date": "1970-03-04"
	}`), &s)
	require.NoError(t, err)

	rec := s.Patient()

	assert.Equal(t, int64(44), rec.PatientID)
	assert.Equal(t, "Rosa", rec.FirstName)
	assert.Equal(t, "5550100", rec.Phone)
	require.NotNil(t, rec.GuarantorID)
	assert.Equal(t, int64(43), *rec.GuarantorID)
	require.NotNil(t, rec.BirthDate)
	assert.Equal(t, 1970, rec.BirthDate.Year())
}
