// Command sp108e-openapi prints the OpenAPI document for the sp108ed API.
// Routes are registered with stub handlers, so nothing is dialled or served.
//
//	sp108e-openapi > openapi.json
//	sp108e-openapi --yaml -o openapi.yaml
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sp108ed/internal/http/routes"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "sp108e-openapi: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("sp108e-openapi", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	output := flags.StringP("output", "o", "", "Output file path (default: stdout)")
	asYAML := flags.Bool("yaml", false, "Output YAML instead of JSON")
	baseURL := flags.String("base-url", "", "Server URL to advertise")
	showVersion := flags.Bool("version", false, "Print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		_, err := fmt.Fprintln(stdout, version)
		return err
	}

	data, err := generate(*baseURL, *asYAML)
	if err != nil {
		return err
	}

	if *output == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", *output, err)
	}
	fmt.Fprintf(stderr, "OpenAPI document written to %s\n", *output)
	return nil
}

// generate renders the API document as JSON or YAML.
func generate(baseURL string, asYAML bool) ([]byte, error) {
	api := humachi.New(chi.NewRouter(), routes.NewHumaConfig(version, baseURL))
	routes.Register(api, routes.StubHandlers())

	doc := api.OpenAPI()
	if asYAML {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling OpenAPI document: %w", err)
	}
	return append(data, '\n'), nil
}
