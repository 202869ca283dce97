package measurement

import (
	"bytes"
	"reflect"
	"testing"

	"scan-analysis/models"

	"github.com/xuri/excelize/v2"
)

func TestWriteBucketWorkbook(t *testing.T) {
	edges := []models.Edge{
		{Source: ".com", Target: SmallProviderNode, Value: 8},
		{Source: "others", Target: "p.net", Value: 2},
	}
	small := []models.SmallProvider{{Provider: "one.org", CustomerCount: 1}}

	var buf bytes.Buffer
	if err := WriteBucketWorkbook(&buf, edges, small); err != nil {
		t.Fatalf("WriteBucketWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	flows, err := f.GetRows(flowsSheet)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"source", "target", "value"}, {".com", "small_provider", "8"}, {"others", "p.net", "2"}}
	if !reflect.DeepEqual(flows, want) {
		t.Fatalf("%s rows = %v, want %v", flowsSheet, flows, want)
	}

	rows, err := f.GetRows(smallSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || !reflect.DeepEqual(rows[1], []string{"one.org", "1", "false"}) {
		t.Fatalf("%s rows = %v", smallSheet, rows)
	}
}
