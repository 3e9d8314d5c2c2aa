package formats

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/gtfcol/pkg/columnar"
	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

type avroField struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Doc  string `json:"doc,omitempty"`
}

type avroSchema struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Doc    string      `json:"doc,omitempty"`
	Fields []avroField `json:"fields"`
}

// AvroSchema returns the Avro schema JSON for table along with the Avro
// field name chosen for each column
func AvroSchema(feature string, table *columnar.FeatureTable) (string, []string, error) {
	return avroSchemaFor(feature, layout(table))
}

func avroSchemaFor(feature string, cols []column) (string, []string, error) {
	names := make([]string, len(cols))
	used := make(map[string]bool, len(cols))
	fields := make([]avroField, len(cols))

	for i, c := range cols {
		base := avroName(c.name)
		name := base
		for n := 2; used[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name

		f := avroField{Name: name, Type: "string"}
		switch c.kind {
		case KindUint64:
			f.Type = "long"
		case KindInt8:
			f.Type = "int"
		}
		if name != c.name {
			f.Doc = c.name
		}
		fields[i] = f
	}

	data, err := json.Marshal(avroSchema{
		Type:   "record",
		Name:   "gtf_" + avroName(feature),
		Doc:    feature,
		Fields: fields,
	})
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode avro schema")
	}
	return string(data), names, nil
}

// avroName maps s onto [A-Za-z_][A-Za-z0-9_]*
func avroName(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func avroCompression(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "deflate":
		return goavro.CompressionDeflateLabel, nil
	case "null", "none":
		return goavro.CompressionNullLabel, nil
	case "snappy":
		return goavro.CompressionSnappyLabel, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unsupported avro compression %q", name)
	}
}

func writeAvro(w io.Writer, feature string, table *columnar.FeatureTable, cfg *WriterConfig) error {
	cols := layout(table)
	schema, names, err := avroSchemaFor(feature, cols)
	if err != nil {
		return err
	}
	compression, err := avroCompression(cfg.AvroCompression)
	if err != nil {
		return err
	}

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create avro codec")
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create avro writer")
	}

	return batches(table.Count, cfg.BatchSize, func(offset, n int) error {
		block := make([]interface{}, n)
		for r := 0; r < n; r++ {
			row := offset + r
			datum := make(map[string]interface{}, len(cols))
			for i, c := range cols {
				switch c.kind {
				case KindCategorical:
					datum[names[i]] = c.cat.Value(row)
				case KindVector:
					datum[names[i]] = c.vec[row]
				case KindUint64:
					v := c.u64[row]
					if v > math.MaxInt64 {
						return errors.Newf(errors.ErrorTypeValidation, "%s value %d does not fit an avro long", c.name, v).
							WithDetail("row", row)
					}
					datum[names[i]] = int64(v)
				case KindInt8:
					datum[names[i]] = int32(c.i8[row])
				}
			}
			block[r] = datum
		}
		return ocf.Append(block)
	})
}
