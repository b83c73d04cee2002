package exp

import (
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/dTravel/cmd/util"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// setupPayloadFlags adds the flags that build a payload
func setupPayloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", util.WrapString("Read the payload from a YAML or JSON file ('-' for stdin). Other payload flags override its fields"))
	cmd.Flags().String("destination", "", util.WrapString("Destination of the travel experience"))
	cmd.Flags().Uint64("date", 0, util.WrapString("Date of the travel experience"))
	cmd.Flags().String("notes", "", util.WrapString("Free text notes"))
	cmd.Flags().StringArray("event", nil, util.WrapString("Historical event, can be repeated"))
}

// readPayload builds the payload from the file and the payload flags of cmd
func readPayload(cmd *cobra.Command) (travel.Payload, error) {
	var p travel.Payload

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		var r io.Reader = cmd.InOrStdin()
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return p, err
			}
			defer f.Close()
			r = f
		}
		var err error
		if p, err = decodePayload(r); err != nil {
			return p, fmt.Errorf("failed to read payload from %s: %w", path, err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("destination") {
		p.Destination, _ = flags.GetString("destination")
	}
	if flags.Changed("date") {
		p.Date, _ = flags.GetUint64("date")
	}
	if flags.Changed("notes") {
		p.Notes, _ = flags.GetString("notes")
	}
	if flags.Changed("event") {
		p.HistoricalEvents, _ = flags.GetStringArray("event")
	}

	return p, nil
}

// decodePayload reads a payload document, JSON is accepted as a subset of YAML
func decodePayload(r io.Reader) (travel.Payload, error) {
	var p travel.Payload
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return travel.Payload{}, err
	}
	return p, nil
}
