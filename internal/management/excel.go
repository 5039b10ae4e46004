package management

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet column headers for the bulk score upload. Admin files carry an
// extra MID column because the uploader is not the mentor.
const (
	HeaderSID        = "SID"
	HeaderCID        = "CID"
	HeaderMID        = "MID"
	HeaderWeek       = "WEEK"
	HeaderScore      = "SCORE"
	HeaderReviewDate = "REVIEW DATE"
	HeaderRemarks    = "REMARKS"
)

const (
	ScoreMinValue = 0.0
	ScoreMaxValue = 10.0
)

var (
	sidPattern  = regexp.MustCompile(`^SI-\d{4}$`)
	cidPattern  = regexp.MustCompile(`^CI-\d{4}$`)
	midPattern  = regexp.MustCompile(`^MI-\d{4}$`)
	weekPattern = regexp.MustCompile(`^(?i)week \d{1,2}$`)
	datePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
)

// ExcelError is a validation failure the uploader can act on; its message
// goes straight into the response body.
type ExcelError struct {
	Message string
}

func (e *ExcelError) Error() string { return e.Message }

func excelErrorf(format string, args ...any) *ExcelError {
	return &ExcelError{Message: fmt.Sprintf(format, args...)}
}

// ScoreRow is one validated spreadsheet row.
type ScoreRow struct {
	SID        string
	CID        string
	MID        string // empty for mentor uploads
	WeekNo     int
	Score      float64
	ReviewDate time.Time
	Remarks    string
}

// ParseScoreSheet reads and validates an uploaded .xlsx workbook. The whole
// file is rejected on the first structural problem (header set, empty cells,
// score range, id patterns, duplicate rows); per-row business failures are
// the caller's job.
func ParseScoreSheet(r io.Reader, withMID bool) ([]ScoreRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, excelErrorf("Could not read the excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, excelErrorf("Empty workbook")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil || len(rows) == 0 {
		return nil, excelErrorf("Empty workbook")
	}

	required := map[string]bool{
		HeaderSID: true, HeaderCID: true, HeaderWeek: true,
		HeaderScore: true, HeaderReviewDate: true, HeaderRemarks: true,
	}
	if withMID {
		required[HeaderMID] = true
	}

	colIndex := make(map[string]int)
	for i, name := range rows[0] {
		colIndex[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	if len(colIndex) != len(required) {
		return nil, excelErrorf("Check file Header. %s expected", headerList(required))
	}
	for name := range required {
		if _, ok := colIndex[name]; !ok {
			return nil, excelErrorf("Check file Header. %s expected", headerList(required))
		}
	}

	cell := func(row []string, header string) string {
		idx := colIndex[header]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []ScoreRow
	seen := make(map[string]bool)
	for n, row := range rows[1:] {
		rowNo := n + 1

		sr := ScoreRow{
			SID:     cell(row, HeaderSID),
			CID:     cell(row, HeaderCID),
			Remarks: cell(row, HeaderRemarks),
		}
		week := cell(row, HeaderWeek)
		score := cell(row, HeaderScore)
		reviewDate := cell(row, HeaderReviewDate)
		if withMID {
			sr.MID = cell(row, HeaderMID)
		}

		if sr.SID == "" || sr.CID == "" || week == "" || score == "" || reviewDate == "" ||
			sr.Remarks == "" || (withMID && sr.MID == "") {
			return nil, excelErrorf("Null values found in row %d", rowNo)
		}

		val, err := strconv.ParseFloat(score, 64)
		if err != nil {
			return nil, excelErrorf("%s should not be a string", HeaderScore)
		}
		if val > ScoreMaxValue {
			return nil, excelErrorf("%s should not be beyond %v", HeaderScore, ScoreMaxValue)
		}
		if val < ScoreMinValue {
			return nil, excelErrorf("%s should not be below %v", HeaderScore, ScoreMinValue)
		}
		sr.Score = val

		if withMID && !midPattern.MatchString(sr.MID) {
			return nil, excelErrorf("MID pattern does not match, [MI-0000] expected")
		}
		if !cidPattern.MatchString(sr.CID) {
			return nil, excelErrorf("CID pattern does not match, [CI-0000] expected")
		}
		if !sidPattern.MatchString(sr.SID) {
			return nil, excelErrorf("SID pattern does not match, [SI-0000] expected")
		}
		if !weekPattern.MatchString(week) {
			return nil, excelErrorf("WEEK pattern does not match, [week xx, Week xx, WEEK xx] expected")
		}
		weekNo, _ := strconv.Atoi(strings.Fields(week)[1])
		sr.WeekNo = weekNo

		if !datePattern.MatchString(reviewDate) {
			return nil, excelErrorf("Invalid date or date pattern found, [dd-mm-yyyy] expected")
		}
		parsed, err := time.Parse("02-01-2006", reviewDate)
		if err != nil {
			return nil, excelErrorf("Invalid date or date pattern found, [dd-mm-yyyy] expected")
		}
		sr.ReviewDate = parsed

		dupKey := fmt.Sprintf("%s|%s|%d", sr.SID, sr.CID, sr.WeekNo)
		if seen[dupKey] {
			return nil, excelErrorf("Duplicate records found. [SID, CID, WEEK] should not be duplicate")
		}
		seen[dupKey] = true

		out = append(out, sr)
	}

	if len(out) == 0 {
		return nil, excelErrorf("No data rows found")
	}
	return out, nil
}

func headerList(required map[string]bool) string {
	names := make([]string, 0, len(required))
	for _, h := range []string{HeaderSID, HeaderCID, HeaderMID, HeaderWeek, HeaderScore, HeaderReviewDate, HeaderRemarks} {
		if required[h] {
			names = append(names, h)
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}
