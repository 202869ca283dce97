package utils

import (
	"encoding/json"
	"testing"
)

func TestHopsFromRedirects(t *testing.T) {
	var history []map[string]interface{}
	raw := `[{"URL":"http://a.com/x","Status":301},{"URL":"https://b.com/y","Status":200},{"Status":"404"},{"URL":"https://c.com"}]`
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		t.Fatal(err)
	}

	hops := HopsFromRedirects(history)
	if len(hops) != 4 {
		t.Fatalf("expected 4 hops, got %d", len(hops))
	}
	if hops[0].URL != "http://a.com/x" || hops[0].Status != 301 {
		t.Fatalf("unexpected first hop %+v", hops[0])
	}
	if hops[1].Status != 200 {
		t.Fatalf("expected 200, got %d", hops[1].Status)
	}
	if hops[2].URL != "" || hops[2].Status != 404 {
		t.Fatalf("unexpected third hop %+v", hops[2])
	}
	if hops[3].Status != 0 {
		t.Fatalf("missing status should decode as 0, got %d", hops[3].Status)
	}
}
