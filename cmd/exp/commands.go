package exp

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/dTravel/cmd/util"
	"github.com/spf13/cobra"
)

var (
	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Stores a new travel experience and prints it with its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPayload(cmd)
			if err != nil {
				return err
			}
			rec, err := rpcService.Create(p)
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, rec)
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [id]",
		Short: "Reads the travel experience with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint("id", args[0])
			if err != nil {
				return err
			}
			rec, err := rpcService.Read(id)
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, rec)
		},
	}
	replaceCmd = &cobra.Command{
		Use:   "replace [id]",
		Short: "Replaces all fields of a travel experience",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint("id", args[0])
			if err != nil {
				return err
			}
			p, err := readPayload(cmd)
			if err != nil {
				return err
			}
			rec, err := rpcService.Replace(id, p)
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, rec)
		},
	}
	setDateCmd = &cobra.Command{
		Use:   "set-date [id] [date]",
		Short: "Changes only the date of a travel experience",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint("id", args[0])
			if err != nil {
				return err
			}
			date, err := parseUint("date", args[1])
			if err != nil {
				return err
			}
			rec, err := rpcService.UpdateDate(id, date)
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, rec)
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Deletes a travel experience and prints it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint("id", args[0])
			if err != nil {
				return err
			}
			rec, err := rpcService.Delete(id)
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, rec)
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all travel experiences in id order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := rpcService.All()
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, recs)
		},
	}
	countCmd = &cobra.Command{
		Use:   "count",
		Short: "Counts all travel experiences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcService.Count()
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, countResult{Count: n})
		},
	}
	beforeCmd = &cobra.Command{
		Use:   "before [date]",
		Short: "Lists the travel experiences dated on or before the given date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseUint("date", args[0])
			if err != nil {
				return err
			}
			recs, err := rpcService.ByDateUpperBound(date)
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, recs)
		},
	}
	countBeforeCmd = &cobra.Command{
		Use:   "count-before [date]",
		Short: "Counts the travel experiences dated on or before the given date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseUint("date", args[0])
			if err != nil {
				return err
			}
			n, err := rpcService.CountByDateUpperBound(date)
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, countResult{Count: n})
		},
	}
	searchCmd = &cobra.Command{
		Use:   "search [destination]",
		Short: "Lists the travel experiences with exactly this destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := rpcService.ByDestination(args[0])
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, recs)
		},
	}
	sortedCmd = &cobra.Command{
		Use:   "sorted",
		Short: "Lists all travel experiences from the oldest to the newest date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := rpcService.SortedByDate()
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, recs)
		},
	}
	latestCmd = &cobra.Command{
		Use:   "latest [n]",
		Short: "Lists the n newest travel experiences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseUint("n", args[0])
			if err != nil {
				return err
			}
			recs, err := rpcService.Latest(n)
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, recs)
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints statistics of the shard and its storage medium",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcService.GetInfo()
			if err != nil {
				return err
			}
			return util.PrintOutput(cmd, info)
		},
	}
)

type countResult struct {
	Count uint64 `json:"count" yaml:"count"`
}

func parseUint(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative number: %w", name, err)
	}
	return v, nil
}
