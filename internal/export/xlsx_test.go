package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dxresults/dxresults/internal/domain/diagnostictest"
)

func sampleRecords() []*diagnostictest.DiagnosticTest {
	notes := "Patient has mild symptoms."
	return []*diagnostictest.DiagnosticTest{
		{
			ID:          uuid.MustParse("9b2f0c7e-4a4e-4d0b-8b57-0d1f8f2b6a11"),
			PatientName: "Zain",
			TestType:    "Blood Test",
			Result:      "Pending",
			TestDate:    time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
			Notes:       &notes,
		},
		{
			ID:          uuid.MustParse("2c5e8a40-1111-4c3e-9e0f-5a7b9c1d2e33"),
			PatientName: "Amal",
			TestType:    "X-Ray",
			Result:      "Normal",
			TestDate:    time.Date(2024, 2, 10, 14, 0, 0, 0, time.UTC),
		},
	}
}

func TestXLSX_WritesHeaderAndRows(t *testing.T) {
	data, err := XLSX(sampleRecords())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{
		"9b2f0c7e-4a4e-4d0b-8b57-0d1f8f2b6a11",
		"Zain",
		"Blood Test",
		"Pending",
		"2024-03-01T09:30:00Z",
		"Patient has mild symptoms.",
	}, rows[1])
	assert.Equal(t, "Amal", rows[2][1])
	assert.Equal(t, "2024-02-10T14:00:00Z", rows[2][4])

	styleID, err := f.GetCellStyle(SheetName, "C1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestXLSX_TestTypeDropDown(t *testing.T) {
	data, err := XLSX(sampleRecords())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	dvs, err := f.GetDataValidations(SheetName)
	require.NoError(t, err)
	require.Len(t, dvs, 1)
	assert.Equal(t, "list", dvs[0].Type)
	assert.Equal(t, "C2:C3", dvs[0].Sqref)
	assert.False(t, dvs[0].ShowErrorMessage, "unlisted test types must stay allowed")
	for _, tt := range diagnostictest.KnownTestTypes {
		assert.Contains(t, dvs[0].Formula1, tt)
	}
}

func TestXLSX_EmptyStillHasHeader(t *testing.T) {
	data, err := XLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Header, rows[0])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tests.xlsx")
	require.NoError(t, WriteFile(path, sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Amal", v)
}
