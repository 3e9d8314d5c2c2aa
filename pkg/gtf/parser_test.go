package gtf

import (
	"bufio"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGTF = `#!genome-build GRCh38.p14
#!genome-version GRCh38
1	havana	gene	11869	14409	.	+	.	gene_id "ENSG00000223972"; gene_version "5"; gene_name "DDX11L1"; gene_source "havana"; gene_biotype "transcribed_unprocessed_pseudogene";
1	havana	transcript	11869	14409	.	+	.	gene_id "ENSG00000223972"; gene_version "5"; transcript_id "ENST00000456328"; transcript_version "2"; gene_name "DDX11L1"; transcript_name "DDX11L1-202"; tag "basic"; tag "Ensembl_canonical";
1	havana	exon	11869	12227	.	+	.	gene_id "ENSG00000223972"; transcript_id "ENST00000456328"; exon_number "1"; exon_id "ENSE00002234944"; tag "basic";

1	havana	exon	12613	12721	.	+	.	gene_id "ENSG00000223972"; transcript_id "ENST00000456328"; exon_number "2"; exon_id "ENSE00003582793";
1	ensembl_havana	gene	14404	29570	.	-	.	gene_id "ENSG00000227232"; gene_version "5"; gene_name "WASH7P"; gene_source "ensembl_havana"; gene_biotype "unprocessed_pseudogene";
X	havana	gene	100	200	.	.	.	gene_id "ENSG00000000003"; gene_biotype "protein_coding";
`

func parseString(t *testing.T, input string, opts Options) (*Result, error) {
	t.Helper()
	return ParseReader(strings.NewReader(input), opts)
}

func assertAligned(t *testing.T, result *Result) {
	t.Helper()
	for _, name := range result.Features() {
		table := result.Tables[name]
		require.NoError(t, table.CheckAlignment(), "feature %s", name)
	}
}

func TestParse_SingleGeneLine(t *testing.T) {
	line := "chr1\tsrc\tgene\t100\t200\t.\t+\t.\tgene_id \"G1\"; gene_name \"Foo\";\n"

	tests := []struct {
		name      string
		zeroBased bool
		wantStart uint64
	}{
		{name: "one-based", zeroBased: false, wantStart: 100},
		{name: "zero-based", zeroBased: true, wantStart: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseString(t, line, Options{
				AcceptedFeatures: []string{"gene"},
				ZeroBasedStart:   tt.zeroBased,
			})
			require.NoError(t, err)

			genes, ok := result.Table("gene")
			require.True(t, ok)
			assert.Equal(t, 1, genes.Count)
			assert.Equal(t, []uint64{tt.wantStart}, genes.Start)
			assert.Equal(t, []uint64{200}, genes.End)
			assert.Equal(t, []int8{1}, genes.Strand)
			assert.Equal(t, []string{"chr1"}, genes.Seqname.Categories())
			assert.Equal(t, []string{"G1"}, genes.VecAttributes["gene_id"])

			name := genes.CatAttributes["gene_name"]
			require.NotNil(t, name)
			assert.Equal(t, []uint32{0}, name.Codes())
			assert.Equal(t, []string{"Foo"}, name.Categories())
		})
	}
}

func TestParse_SampleFile(t *testing.T) {
	result, err := parseString(t, sampleGTF, Options{})
	require.NoError(t, err)
	assertAligned(t, result)

	assert.Equal(t, []string{"exon", "gene", "transcript"}, result.Features())

	genes := result.Tables["gene"]
	assert.Equal(t, 3, genes.Count)
	assert.Equal(t, []int8{1, -1, 0}, genes.Strand)
	assert.Equal(t, []string{"1", "1", "X"}, genes.Seqname.Decode())
	assert.Equal(t, []string{"ENSG00000223972", "ENSG00000227232", "ENSG00000000003"}, genes.VecAttributes["gene_id"])
	assert.Equal(t,
		[]string{"transcribed_unprocessed_pseudogene", "unprocessed_pseudogene", "protein_coding"},
		genes.CatAttributes["gene_biotype"].Decode())
	// gene_name missing on the third gene is padded
	assert.Equal(t, []string{"DDX11L1", "WASH7P", ""}, genes.CatAttributes["gene_name"].Decode())

	transcripts := result.Tables["transcript"]
	assert.Equal(t, 1, transcripts.Count)
	assert.Equal(t, []string{"basic"}, transcripts.CatAttributes["tag0"].Decode())
	assert.Equal(t, []string{"Ensembl_canonical"}, transcripts.CatAttributes["tag1"].Decode())
	assert.Contains(t, transcripts.CatAttributes, "transcript_name")
	assert.NotContains(t, transcripts.CatAttributes, "gene_name")

	exons := result.Tables["exon"]
	assert.Equal(t, 2, exons.Count)
	assert.NotContains(t, exons.CatAttributes, "tag0")
	assert.Equal(t, []string{"1", "2"}, exons.CatAttributes["exon_number"].Decode())
	assert.Equal(t, []string{"ENSE00002234944", "ENSE00003582793"}, exons.VecAttributes["exon_id"])

	stats := result.Stats
	assert.Equal(t, int64(9), stats.Lines)
	assert.Equal(t, int64(3), stats.Skipped)
	assert.Equal(t, int64(6), stats.Records)
	assert.Equal(t, int64(1), stats.TagsDropped)
	assert.Equal(t, map[string]int64{"gene": 3, "transcript": 1, "exon": 2}, stats.RowsByFeature)
}

func TestParse_AcceptedFeaturesFilter(t *testing.T) {
	result, err := parseString(t, sampleGTF, Options{AcceptedFeatures: []string{"gene"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"gene"}, result.Features())
	assert.Equal(t, 3, result.Tables["gene"].Count)
	assert.Equal(t, int64(3), result.Stats.Filtered)
	assert.Equal(t, int64(3), result.Stats.Records)
}

func TestParse_EmptyFilterAcceptsAll(t *testing.T) {
	result, err := parseString(t, sampleGTF, Options{AcceptedFeatures: nil})
	require.NoError(t, err)
	assert.Len(t, result.Tables, 3)
	assert.Equal(t, int64(0), result.Stats.Filtered)
}

func TestParse_MalformedLineFailsWholeParse(t *testing.T) {
	input := sampleGTF + "1\thavana\tgene\t100\t200\n"

	result, err := parseString(t, input, Options{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedRecord))
	assert.Contains(t, err.Error(), "failed to find strand")

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	line, ok := e.Detail("line")
	require.True(t, ok)
	assert.Equal(t, int64(10), line)
}

func TestParse_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		missing string
	}{
		{name: "seqname only", line: "1", missing: "feature"},
		{name: "no start", line: "1\tsrc\tgene", missing: "start"},
		{name: "no attributes", line: "1\tsrc\tgene\t1\t2\t.\t+\t.", missing: "attributes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, tt.line, Options{})
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedRecord))
			assert.Contains(t, err.Error(), "failed to find "+tt.missing)
		})
	}
}

func TestParse_NumericErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		opts Options
	}{
		{name: "non numeric start", line: "1\tsrc\tgene\tabc\t200\t.\t+\t.\tgene_id \"G1\";"},
		{name: "negative end", line: "1\tsrc\tgene\t1\t-5\t.\t+\t.\tgene_id \"G1\";"},
		{name: "overflow", line: "1\tsrc\tgene\t1\t99999999999999999999\t.\t+\t.\tgene_id \"G1\";"},
		{name: "zero start with zero-based conversion", line: "1\tsrc\tgene\t0\t5\t.\t+\t.\tgene_id \"G1\";", opts: Options{ZeroBasedStart: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseString(t, sampleGTF+tt.line, tt.opts)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.IsType(err, errors.ErrorTypeNumericParse), "got %v", err)
		})
	}
}

func TestParse_ZeroStartAllowedWithoutConversion(t *testing.T) {
	result, err := parseString(t, "1\tsrc\tgene\t0\t5\t.\t+\t.\tgene_id \"G1\";", Options{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, result.Tables["gene"].Start)
}

func TestParse_FilteredFeatureIsNotValidatedNumerically(t *testing.T) {
	input := "1\tsrc\texon\tnot-a-number\t5\t.\t+\t.\tgene_id \"G1\";\n" +
		"1\tsrc\tgene\t1\t5\t.\t+\t.\tgene_id \"G1\";\n"

	result, err := parseString(t, input, Options{AcceptedFeatures: []string{"gene"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gene"}, result.Features())
}

func TestParse_AttributeWithoutValue(t *testing.T) {
	_, err := parseString(t, "1\tsrc\tgene\t1\t5\t.\t+\t.\tgene_id \"G1\"; orphan;", Options{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedRecord))
}

func TestParse_StrandDecoding(t *testing.T) {
	input := strings.Join([]string{
		"1\ts\tgene\t1\t2\t.\t+\t.\tgene_id \"a\";",
		"1\ts\tgene\t1\t2\t.\t-\t.\tgene_id \"b\";",
		"1\ts\tgene\t1\t2\t.\t.\t.\tgene_id \"c\";",
		"1\ts\tgene\t1\t2\t.\t?\t.\tgene_id \"d\";",
	}, "\n")

	result, err := parseString(t, input, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int8{1, -1, 0, 0}, result.Tables["gene"].Strand)
}

func TestParse_SeventhTagDropped(t *testing.T) {
	line := "1\ts\ttranscript\t1\t2\t.\t+\t.\ttranscript_id \"T1\"; tag \"t0\"; tag \"t1\"; tag \"t2\"; tag \"t3\"; tag \"t4\"; tag \"t5\"; tag \"t6\";"

	result, err := parseString(t, line, Options{})
	require.NoError(t, err)

	transcripts := result.Tables["transcript"]
	assert.Equal(t, []string{"t5"}, transcripts.CatAttributes["tag5"].Decode())
	assert.NotContains(t, transcripts.CatAttributes, "tag6")
	assert.Equal(t, int64(1), result.Stats.TagsDropped)
}

func TestParse_AttributesFieldKeepsTabs(t *testing.T) {
	line := "1\ts\tgene\t1\t2\t.\t+\t.\tgene_id \"G1\";\tnote \"x\";"

	result, err := parseString(t, line, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, result.Tables["gene"].CatAttributes["note"].Decode())
}

func TestParse_RetainSourceFrame(t *testing.T) {
	result, err := parseString(t, sampleGTF, Options{RetainSourceFrame: true})
	require.NoError(t, err)
	assertAligned(t, result)

	genes := result.Tables["gene"]
	require.NotNil(t, genes.Source)
	assert.Equal(t, []string{"havana", "ensembl_havana", "havana"}, genes.Source.Decode())
	assert.Equal(t, []string{".", ".", "."}, genes.Frame.Decode())
}

func TestParse_CRLFLineEndings(t *testing.T) {
	input := "1\ts\tgene\t1\t2\t.\t+\t.\tgene_id \"G1\";\r\n1\ts\tgene\t3\t4\t.\t-\t.\tgene_id \"G2\";\r\n"

	result, err := parseString(t, input, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"G1", "G2"}, result.Tables["gene"].VecAttributes["gene_id"])
}

func TestParse_ReadErrorIsIOError(t *testing.T) {
	r := io.MultiReader(strings.NewReader(sampleGTF), iotest.ErrReader(io.ErrUnexpectedEOF))

	result, err := ParseReader(r, Options{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, errors.IsRetryable(err))
}

func TestParse_AcceptsScanner(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader(sampleGTF))
	result, err := Parse(sc, Options{AcceptedFeatures: []string{"exon"}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Tables["exon"].Count)
}

func TestParse_EmptyInput(t *testing.T) {
	result, err := parseString(t, "", Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Tables)
	assert.Empty(t, result.Features())
}

func TestParse_AlignmentWithSparseKeys(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("1\ts\texon\t1\t2\t.\t+\t.\tgene_id \"G\";")
		switch i % 3 {
		case 0:
			b.WriteString(" ccds_id \"C\";")
		case 1:
			b.WriteString(" exon_number \"1\";")
		}
		if i == 49 {
			b.WriteString(" late_key \"z\";")
		}
		b.WriteString("\n")
	}

	result, err := parseString(t, b.String(), Options{})
	require.NoError(t, err)
	assertAligned(t, result)

	exons := result.Tables["exon"]
	assert.Equal(t, 50, exons.Count)
	late := exons.CatAttributes["late_key"]
	assert.Equal(t, uint32(1), late.Codes()[49])
	assert.Equal(t, uint32(0), late.Codes()[0])
}

func BenchmarkParseReader(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		sb.WriteString(sampleGTF)
	}
	input := sb.String()

	b.SetBytes(int64(len(input)))
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := ParseReader(strings.NewReader(input), Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
