package report

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

var ErrMalformedReport = errors.New("malformed report")

// Record is one parsed report entry whose name decomposed cleanly.
type Record struct {
	ID       string // Value of the entry's id attribute, if any
	FullName string
	Suite    string
	Case     string
	Result   types.Result
}

// Rejected is an entry whose name could not be decomposed.
type Rejected struct {
	Name   string
	Failed bool
	Err    error
}

// Statistics mirrors the optional Statistics section of a CppUnit report.
type Statistics struct {
	Tests         int
	FailuresTotal int
	Errors        int
	Failures      int
}

// Report is the parsed content of a single TestRun document.
type Report struct {
	Failed     []Record
	Successful []Record
	Rejected   []Rejected
	Stats      *Statistics // nil when the section is absent or unreadable
}

// Records returns all records in reconciliation order: failures first.
func (r *Report) Records() []Record {
	out := make([]Record, 0, len(r.Failed)+len(r.Successful))
	out = append(out, r.Failed...)
	return append(out, r.Successful...)
}

// Len returns the number of accepted records.
func (r *Report) Len() int {
	return len(r.Failed) + len(r.Successful)
}

// StatsMismatch reports whether the Statistics section disagrees with the
// number of entries found in the document.
func (r *Report) StatsMismatch() bool {
	if r.Stats == nil {
		return false
	}
	total := r.Len() + len(r.Rejected)
	return r.Stats.Tests != total
}

type xmlTestRun struct {
	XMLName         xml.Name       `xml:"TestRun"`
	FailedTests     *xmlSection    `xml:"FailedTests"`
	SuccessfulTests *xmlSection    `xml:"SuccessfulTests"`
	Statistics      *xmlStatistics `xml:"Statistics"`
}

// xmlSection holds either kind of entry; a single entry decodes into a
// one-element slice and an absent section leaves the pointer nil.
type xmlSection struct {
	FailedTests []xmlFailedTest `xml:"FailedTest"`
	Tests       []xmlTest       `xml:"Test"`
}

type xmlTest struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"Name"`
}

type xmlFailedTest struct {
	ID          string       `xml:"id,attr"`
	Name        string       `xml:"Name"`
	FailureType string       `xml:"FailureType"`
	Message     string       `xml:"Message"`
	Location    *xmlLocation `xml:"Location"`
}

type xmlLocation struct {
	File string `xml:"File"`
	Line string `xml:"Line"`
}

type xmlStatistics struct {
	Tests         string `xml:"Tests"`
	FailuresTotal string `xml:"FailuresTotal"`
	Errors        string `xml:"Errors"`
	Failures      string `xml:"Failures"`
}

// ParseBytes parses an in-memory report.
func ParseBytes(data []byte) (*Report, error) {
	return Parse(bytes.NewReader(data))
}

// Parse decodes a CppUnit XML report.
func Parse(r io.Reader) (*Report, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var doc xmlTestRun
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	rep := &Report{}
	// Failures of both sections are reconciled before any success.
	for _, section := range []*xmlSection{doc.FailedTests, doc.SuccessfulTests} {
		if section == nil {
			continue
		}
		for _, ft := range section.FailedTests {
			res, err := failedResult(ft)
			if err != nil {
				return nil, err
			}
			rep.add(ft.ID, ft.Name, res)
		}
	}
	for _, section := range []*xmlSection{doc.FailedTests, doc.SuccessfulTests} {
		if section == nil {
			continue
		}
		for _, t := range section.Tests {
			rep.add(t.ID, t.Name, types.Result{Passed: true})
		}
	}

	rep.Stats = parseStatistics(doc.Statistics)
	return rep, nil
}

func (rep *Report) add(id, name string, res types.Result) {
	name = strings.TrimSpace(name)
	suite, testCase, err := SplitName(name)
	if err != nil {
		rep.Rejected = append(rep.Rejected, Rejected{Name: name, Failed: !res.Passed, Err: err})
		return
	}
	rec := Record{
		ID:       strings.TrimSpace(id),
		FullName: name,
		Suite:    suite,
		Case:     testCase,
		Result:   res,
	}
	if res.Passed {
		rep.Successful = append(rep.Successful, rec)
	} else {
		rep.Failed = append(rep.Failed, rec)
	}
}

func failedResult(ft xmlFailedTest) (types.Result, error) {
	res := types.Result{
		Passed:      false,
		Message:     strings.TrimSpace(ft.Message),
		FailureType: strings.TrimSpace(ft.FailureType),
	}
	if ft.Location == nil {
		return res, nil
	}
	res.FilePath = strings.TrimSpace(ft.Location.File)
	line := strings.TrimSpace(ft.Location.Line)
	if line == "" {
		return res, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return types.Result{}, fmt.Errorf("%w: invalid line %q for %q", ErrMalformedReport, line, strings.TrimSpace(ft.Name))
	}
	res.Line = n
	return res, nil
}

func parseStatistics(s *xmlStatistics) *Statistics {
	if s == nil {
		return nil
	}
	var stats Statistics
	fields := []struct {
		raw string
		dst *int
	}{
		{s.Tests, &stats.Tests},
		{s.FailuresTotal, &stats.FailuresTotal},
		{s.Errors, &stats.Errors},
		{s.Failures, &stats.Failures},
	}
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f.raw))
		if err != nil {
			return nil
		}
		*f.dst = n
	}
	return &stats
}

// charsetReader decodes the non UTF-8 encodings CppUnit's XmlOutputter may
// declare. ISO-8859-1 is its default.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "iso8859-1", "iso_8859-1", "latin1", "latin-1", "l1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
