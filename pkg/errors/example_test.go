// Package errors provides examples of structured error handling in gtfcol.
package errors_test

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeMalformedRecord, "failed to find attributes").
		WithDetail("line", 42).
		WithDetail("fields", 8)

	fmt.Println(err.Error())

	// Output:
	// malformed_record: failed to find attributes
}

// ExampleWrap shows how to wrap an underlying error with context.
func ExampleWrap() {
	_, cause := strconv.ParseUint("12x", 10, 64)

	err := errors.Wrap(cause, errors.ErrorTypeNumericParse, "invalid start coordinate").
		WithDetail("line", 7)

	if errors.IsType(err, errors.ErrorTypeNumericParse) {
		fmt.Println("This is a numeric parse error")
	}
	fmt.Println(err)

	// Output:
	// This is a numeric parse error
	// numeric_parse: invalid start coordinate: strconv.ParseUint: parsing "12x": invalid syntax
}

// ExampleIsRetryable shows which failures are worth retrying.
func ExampleIsRetryable() {
	ioErr := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeIO, "failed to read line")
	badLine := errors.New(errors.ErrorTypeMalformedRecord, "failed to find start")

	if errors.IsRetryable(ioErr) {
		fmt.Println("IO error is retryable")
	}
	if !errors.IsRetryable(badLine) {
		fmt.Println("Malformed record is not retryable")
	}

	// Output:
	// IO error is retryable
	// Malformed record is not retryable
}

// Example_errorChain shows how contexts stack when wrapping repeatedly.
func Example_errorChain() {
	var err error = errors.New(errors.ErrorTypeConnection, "connection reset").
		WithDetail("uri", "s3://annotations/Homo_sapiens.gtf.gz")

	err = errors.Wrap(err, errors.ErrorTypeIO, "failed to read line").
		WithDetail("line", 1000)

	fmt.Println("Full error chain:", err)

	// Output:
	// Full error chain: io: failed to read line: connection: connection reset
}

// ExampleIsType demonstrates checking error types.
func ExampleIsType() {
	numErr := errors.New(errors.ErrorTypeNumericParse, "invalid end coordinate")
	wrapped := errors.Wrap(numErr, errors.ErrorTypeInternal, "parse failed")

	fmt.Printf("Is numeric parse error: %v\n", errors.IsType(numErr, errors.ErrorTypeNumericParse))
	fmt.Printf("Wrapped error is internal: %v\n", errors.IsType(wrapped, errors.ErrorTypeInternal))
	fmt.Printf("Wrapped error is numeric parse: %v\n", errors.IsType(wrapped, errors.ErrorTypeNumericParse))

	// Output:
	// Is numeric parse error: true
	// Wrapped error is internal: true
	// Wrapped error is numeric parse: false
}

// Example_details shows how to read details back from an error.
func Example_details() {
	err := errors.Newf(errors.ErrorTypeMalformedRecord, "attribute %q has no value", "gene_id").
		WithDetail("line", 3)

	if line, ok := err.Detail("line"); ok {
		fmt.Printf("Type: %s\n", err.Type)
		fmt.Printf("Message: %s\n", err.Message)
		fmt.Printf("Line: %v\n", line)
	}

	// Output:
	// Type: malformed_record
	// Message: attribute "gene_id" has no value
	// Line: 3
}
