package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ibs-source/sonar-consumer/internal/consumer"
	"github.com/spf13/cobra"
)

func newQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <name> [json-args]",
		Short: "Run a named query and hand its results to the sinks",
		Example: `  sonar-consumer query search '"hei"'
  sonar-consumer query by-type '{"type":"post"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var queryArgs any
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("query arguments are not valid JSON: %s", args[1])
				}
				queryArgs = json.RawMessage(args[1])
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			d, err := a.dispatcher()
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			coll, _ := a.collection()
			_, err = consumer.RunQuery(cmd.Context(), coll, args[0], queryArgs, d, a.log)
			return ignoreCanceled(err)
		},
	}
}
