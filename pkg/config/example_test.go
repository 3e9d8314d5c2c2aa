package config_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/gtfcol/pkg/config"
)

// ExampleDefault demonstrates the defaults of a run.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Compression: %s\n", cfg.Input.Compression)
	fmt.Printf("Format: %q\n", cfg.Output.Format)
	fmt.Printf("Zero-based start: %v\n", cfg.Parse.ZeroBasedStart)

	// Output:
	// Compression: auto
	// Format: ""
	// Zero-based start: false
}

// ExampleConfig_Validate shows how to validate a configuration before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Output.Format = "parquet"
	cfg.Output.Dir = "tables"
	cfg.Workers = 4

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Output.Format = "orc"
	fmt.Println(cfg.Validate() != nil)

	// Output:
	// Configuration is valid!
	// true
}

// ExampleLoadFile demonstrates loading a YAML file with environment
// variable substitution.
func ExampleLoadFile() {
	dir, err := os.MkdirTemp("", "gtfcol-config")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	os.Setenv("GTFCOL_EXAMPLE_DIR", "/data/tables")
	defer os.Unsetenv("GTFCOL_EXAMPLE_DIR")

	path := filepath.Join(dir, "gtfcol.yaml")
	yamlContent := `
parse:
  accepted_features: [gene, transcript]
output:
  format: arrow
  dir: ${GTFCOL_EXAMPLE_DIR}
`
	if err := os.WriteFile(path, []byte(yamlContent), 0600); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Parse.AcceptedFeatures)
	fmt.Println(cfg.Output.Format, cfg.Output.Dir)
	fmt.Println(cfg.Logging.Level)

	// Output:
	// [gene transcript]
	// arrow /data/tables
	// info
}

// ExampleConfig_ParseOptions shows the conversion to parser options.
func ExampleConfig_ParseOptions() {
	cfg := config.Default()
	cfg.Parse.AcceptedFeatures = []string{"exon"}
	cfg.Parse.ZeroBasedStart = true

	opts := cfg.ParseOptions()
	fmt.Println(opts.AcceptedFeatures, opts.ZeroBasedStart, opts.RetainSourceFrame)

	// Output:
	// [exon] true false
}
