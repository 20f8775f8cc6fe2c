package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Format selects the serialization of list and show output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format flag value.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatText, FormatJSON, FormatYAML:
		return Format(value), nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, or yaml)", value)
	}
}

// writeFormatted serializes value to stdout in the given format, using
// render for the text form.
func writeFormatted(format Format, value any, render func() string) error {
	switch format {
	case FormatJSON:
		return encodeJSONToStdout(value)
	case FormatYAML:
		return encodeYAMLToStdout(value)
	default:
		fmt.Print(render())
		return nil
	}
}

func encodeJSONToStdout(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func encodeYAMLToStdout(value any) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(value)
}
