package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gtfcol/internal/pipeline"
	"github.com/ajitpratap0/gtfcol/pkg/errors"
	"github.com/ajitpratap0/gtfcol/pkg/testutil"
)

const annotation = `1	havana	gene	11869	14409	.	+	.	gene_id "ENSG00000223972"; gene_name "DDX11L1"; gene_biotype "transcribed_unprocessed_pseudogene";
1	havana	transcript	11869	14409	.	+	.	gene_id "ENSG00000223972"; transcript_id "ENST00000456328"; tag "basic";
1	havana	exon	11869	12227	.	+	.	gene_id "ENSG00000223972"; transcript_id "ENST00000456328"; exon_number "1";
`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return stdout.String(), err
}

func writeInput(t *testing.T) string {
	t.Helper()
	return testutil.WriteFile(t, t.TempDir(), "genes.gtf", []byte(annotation))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gtfcol v"+version)
}

func TestParseWritesTables(t *testing.T) {
	input := writeInput(t)
	outDir := filepath.Join(t.TempDir(), "tables")
	metricsFile := filepath.Join(t.TempDir(), "gtfcol.prom")

	out, err := execute(t, "", "parse",
		"--features", "gene,exon",
		"--format", "parquet",
		"--out-dir", outDir,
		"--metrics-file", metricsFile,
		input)
	require.NoError(t, err)

	var reports []pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.EqualValues(t, 2, reports[0].Stats.Records)
	assert.EqualValues(t, 1, reports[0].Stats.Filtered)
	assert.Equal(t, []string{
		filepath.Join(outDir, "genes.exon.parquet"),
		filepath.Join(outDir, "genes.gene.parquet"),
	}, reports[0].Outputs)

	for _, path := range reports[0].Outputs {
		assert.FileExists(t, path)
	}
	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gtfcol_records_parsed_total")
}

func TestParseDefaultsToArrow(t *testing.T) {
	input := writeInput(t)
	outDir := t.TempDir()

	_, err := execute(t, "", "parse", "--mmap", "-o", outDir, input)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "genes.transcript.arrow"))
}

func TestParseReadsConfigAndEnv(t *testing.T) {
	input := writeInput(t)
	outDir := t.TempDir()
	configFile := filepath.Join(t.TempDir(), "gtfcol.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
parse:
  accepted_features: [transcript]
output:
  format: avro
`), 0600))
	t.Setenv("GTFCOL_OUTPUT_DIR", outDir)

	_, err := execute(t, "", "parse", "--config", configFile, input)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "genes.transcript.avro"))
	assert.NoFileExists(t, filepath.Join(outDir, "genes.gene.avro"))
}

func TestParseHonorsConfiguredNone(t *testing.T) {
	input := writeInput(t)
	outDir := t.TempDir()
	t.Setenv("GTFCOL_OUTPUT_FORMAT", "none")

	out, err := execute(t, "", "parse", "-o", outDir, input)
	require.NoError(t, err)
	var reports []pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Outputs)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInspectFromStdin(t *testing.T) {
	out, err := execute(t, annotation, "inspect", "--zero-based", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stdin"), out)
	assert.NotContains(t, out, "-  (")
	assert.Contains(t, out, "transcript")
	assert.Contains(t, out, "tag0")
	assert.Contains(t, out, "categorical")

	out, err = execute(t, annotation, "inspect", "--json", "-")
	require.NoError(t, err)
	var reports []pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports[0].Tables, 3)
	assert.Equal(t, "exon", reports[0].Tables[0].Feature)
}

func TestParseReportsLineOfFailure(t *testing.T) {
	_, err := execute(t, annotation+"1\thavana\texon\n", "inspect", "-")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedRecord))

	msg := formatError(err)
	assert.Contains(t, msg, "failed to find start")
	assert.Contains(t, msg, "line=4")
	assert.Contains(t, msg, "input=-")
}

func TestInvalidFlags(t *testing.T) {
	_, err := execute(t, "", "parse", "--format", "orc", "-")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = execute(t, "", "parse")
	assert.Error(t, err)
}

func TestFormatErrorPlain(t *testing.T) {
	assert.Equal(t, "Error: boom", formatError(fmt.Errorf("boom")))
	assert.Equal(t, "Error: config: bad", formatError(errors.New(errors.ErrorTypeConfig, "bad")))
}
