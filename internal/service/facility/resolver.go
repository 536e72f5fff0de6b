package facility

import "strings"

// DefaultCode is the internal-medicine category used when nothing matches.
const DefaultCode = "01"

// Mapping binds a department label fragment to a directory category code.
type Mapping struct {
	Keyword string
	Code    string
}

// Specific labels come before the generic ones they contain (정형외과 before 외과).
var departmentTable = []Mapping{
	{Keyword: "정형외과", Code: "05"},
	{Keyword: "신경외과", Code: "06"},
	{Keyword: "흉부외과", Code: "07"},
	{Keyword: "성형외과", Code: "08"},
	{Keyword: "신경과", Code: "02"},
	{Keyword: "정신건강의학과", Code: "03"},
	{Keyword: "소아", Code: "11"},
	{Keyword: "산부인과", Code: "10"},
	{Keyword: "이비인후과", Code: "13"},
	{Keyword: "안과", Code: "12"},
	{Keyword: "피부과", Code: "14"},
	{Keyword: "비뇨", Code: "15"},
	{Keyword: "재활의학과", Code: "21"},
	{Keyword: "마취통증", Code: "09"},
	{Keyword: "응급", Code: "24"},
	{Keyword: "치과", Code: "49"},
	{Keyword: "외과", Code: "04"},
	{Keyword: "내과", Code: "01"},
	{Keyword: "가정의학과", Code: "23"},
}

// Resolve returns the code of the first table entry contained in department.
func Resolve(department string) string {
	for _, m := range departmentTable {
		if strings.Contains(department, m.Keyword) {
			return m.Code
		}
	}
	return DefaultCode
}

// Table returns a copy of the ordered mapping table.
func Table() []Mapping {
	out := make([]Mapping, len(departmentTable))
	copy(out, departmentTable)
	return out
}
