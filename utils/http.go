package utils

import (
	"encoding/json"
	"scan-analysis/models"
	"strconv"
)

// HopsFromRedirects decodes the probe's redirect history entries
// ({"URL": ..., "Status": ...}, oldest first) into hops.
func HopsFromRedirects(history []map[string]interface{}) []models.Hop {
	hops := make([]models.Hop, 0, len(history))
	for _, entry := range history {
		hop := models.Hop{}
		if u, ok := entry["URL"].(string); ok {
			hop.URL = u
		}
		hop.Status = statusOf(entry["Status"])
		hops = append(hops, hop)
	}
	return hops
}

func statusOf(v interface{}) int {
	switch s := v.(type) {
	case float64:
		return int(s)
	case int:
		return s
	case json.Number:
		n, _ := s.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(s)
		return n
	}
	return 0
}
