package measurement

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"scan-analysis/models"
)

// WriteJSON encodes data with 4-space indent and no HTML escaping.
func WriteJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data to JSON: %w", err)
	}
	return nil
}

// WriteChainsJSONL writes one canonical chain per line.
func WriteChainsJSONL(w io.Writer, chains []models.CanonicalChain) error {
	writer := bufio.NewWriterSize(w, 64*1024)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for _, chain := range chains {
		if err := encoder.Encode(chain); err != nil {
			return fmt.Errorf("error marshaling JSON: %w", err)
		}
	}
	return writer.Flush()
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteEdgesCSV writes the source,target,value table.
func WriteEdgesCSV(w io.Writer, edges []models.Edge) error {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{e.Source, e.Target, strconv.Itoa(e.Value)})
	}
	return writeCSV(w, []string{"source", "target", "value"}, rows)
}

// WriteSmallProvidersCSV writes the Provider,CustomerCount,ContainsSelf table.
func WriteSmallProvidersCSV(w io.Writer, providers []models.SmallProvider) error {
	rows := make([][]string, 0, len(providers))
	for _, p := range providers {
		rows = append(rows, []string{p.Provider, strconv.Itoa(p.CustomerCount), strconv.FormatBool(p.ContainsSelf)})
	}
	return writeCSV(w, []string{"Provider", "CustomerCount", "ContainsSelf"}, rows)
}

// WriteClusterTargetsCSV writes one row per (type, port, server) target,
// the input of the connectivity runner.
func WriteClusterTargetsCSV(w io.Writer, clusters *ClusterMap) error {
	keys := clusters.Keys()
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		domains := clusters.Domains(k)
		rows = append(rows, []string{k.Group(), k.Type, k.Port, k.Server, strconv.Itoa(len(domains)), strings.Join(domains, " ")})
	}
	return writeCSV(w, []string{"key", "type", "port", "server", "domain_count", "domains"}, rows)
}

// SaveFile creates path and hands it to write. Errors from write or close
// are returned; they are fatal to the run.
func SaveFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if err := write(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
