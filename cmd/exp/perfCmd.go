package exp

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dTravel/cmd/util"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/rpc/common"
	"github.com/google/uuid"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dTravel servers",
		Long:    "Runs every benchmark with the configured number of threads and prints the latency of the operations. All records created by the benchmarks are deleted afterwards.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 10
	perfOps        = 1000
	perfRecords    = 100
	perfSkip       = make([]string, 0)
)

// perfTests lists the benchmarks in the order they are run
var perfTests = []string{"create", "read", "read-missing", "set-date", "search", "latest", "delete", "mixed"}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. create,latest)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per benchmark"))
	key = "records"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many records to prepare for the read, update and query tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfOps = max(1, viper.GetInt("ops"))
	perfRecords = max(1, viper.GetInt("records"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult is the outcome of a single benchmark
type perfResult struct {
	Test    string
	Timer   metrics.Timer
	Errors  int64
	Elapsed time.Duration
	Skipped bool
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dTravel servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Operations: %d\n", perfOps)
	fmt.Println()

	fmt.Println("starting tests...")

	// all records of this run share a destination, this scopes the search test
	destination := "__perf-" + uuid.NewString()
	registry := metrics.NewRegistry()
	results := make([]perfResult, 0, len(perfTests))

	for _, test := range perfTests {
		result := perfResult{Test: test, Timer: metrics.GetOrRegisterTimer(test, registry)}
		if shouldSkip(test) {
			result.Skipped = true
		} else {
			var err error
			if result.Errors, result.Elapsed, err = runTest(test, destination, result.Timer); err != nil {
				return fmt.Errorf("(%s) - %w", test, err)
			}
		}
		results = append(results, result)
		printResult(result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runTest prepares the records of a test, runs it and deletes the records
func runTest(test, destination string, timer metrics.Timer) (errs int64, elapsed time.Duration, err error) {
	payload := func(i int) travel.Payload {
		return travel.Payload{
			Destination:      destination,
			Date:             uint64(i),
			Notes:            "perf",
			HistoricalEvents: []string{"benchmark"},
		}
	}

	// prepare records, create and delete bring their own
	var ids []uint64
	if test != "create" {
		for i := range perfRecords {
			rec, err := rpcService.Create(payload(i))
			if err != nil {
				return 0, 0, fmt.Errorf("error preparing records: %w", err)
			}
			ids = append(ids, rec.ID)
		}
	}

	var mu sync.Mutex
	var created []uint64
	track := func(id uint64) {
		mu.Lock()
		created = append(created, id)
		mu.Unlock()
	}

	// cleanup
	defer func() {
		for _, id := range append(ids, created...) {
			if _, err := rpcService.Delete(id); err != nil && !travel.IsNotFound(err) {
				log.Printf("(%s) - error deleting record %d: %v\n", test, id, err)
			}
		}
	}()

	op := func(i int) error {
		var id uint64
		if len(ids) > 0 {
			id = ids[i%len(ids)]
		}
		var err error
		switch test {
		case "create":
			var rec travel.Record
			if rec, err = rpcService.Create(payload(i)); err == nil {
				track(rec.ID)
			}
		case "read":
			_, err = rpcService.Read(id)
		case "read-missing":
			// ids are never reused, so 0 never exists
			if _, err = rpcService.Read(0); travel.IsNotFound(err) {
				err = nil
			}
		case "set-date":
			_, err = rpcService.UpdateDate(id, uint64(i))
		case "search":
			_, err = rpcService.ByDestination(destination)
		case "latest":
			_, err = rpcService.Latest(10)
		case "delete":
			// every operation deletes a prepared record exactly once
			if i >= perfRecords {
				_, err = rpcService.Count()
			} else {
				_, err = rpcService.Delete(id)
			}
		case "mixed":
			switch i % 4 {
			case 0:
				_, err = rpcService.Replace(id, payload(i))
			case 1:
				_, err = rpcService.Read(id)
			case 2:
				_, err = rpcService.CountByDateUpperBound(uint64(i))
			case 3:
				_, err = rpcService.SortedByDate()
			}
		}
		return err
	}

	elapsed, errs = measure(timer, op)
	return errs, elapsed, nil
}

// measure runs perfOps operations on perfNumThreads goroutines and times each of them
func measure(timer metrics.Timer, op func(i int) error) (time.Duration, int64) {
	var next, errs atomic.Int64
	var wg sync.WaitGroup

	start := time.Now()
	for range perfNumThreads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= perfOps {
					return
				}
				opStart := time.Now()
				err := op(i)
				timer.UpdateSince(opStart)
				if err != nil {
					errs.Add(1)
					log.Printf("error in operation %d: %v\n", i, err)
				}
			}
		}()
	}
	wg.Wait()

	return time.Since(start), errs.Load()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// opsPerSec is the throughput of a result over its wall clock time
func opsPerSec(result perfResult) float64 {
	if result.Elapsed <= 0 {
		return 0
	}
	return float64(result.Timer.Count()) / result.Elapsed.Seconds()
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(result perfResult) {
	if result.Skipped {
		fmt.Printf("%-16sskipped\n", result.Test)
		return
	}

	t := result.Timer.Snapshot()
	ps := t.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-16smean %-12s p50 %-12s p99 %-12s %8.0f ops/sec\terrors %d\n",
		result.Test,
		time.Duration(t.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		opsPerSec(result),
		result.Errors,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Ops", "Errors", "MeanNs", "P50Ns", "P99Ns", "MaxNs", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "Records",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, result := range results {
		t := result.Timer.Snapshot()
		ps := t.Percentiles([]float64{0.5, 0.99})

		row := []string{
			result.Test,
			strconv.FormatInt(t.Count(), 10),
			strconv.FormatInt(result.Errors, 10),
			fmt.Sprintf("%.0f", t.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strconv.FormatInt(t.Max(), 10),
			fmt.Sprintf("%.0f", opsPerSec(result)),
			strconv.FormatBool(result.Skipped),
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfRecords),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", result.Test, err)
		}
	}

	return nil
}
