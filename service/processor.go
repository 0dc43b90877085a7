package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/CalverLabs/drsidx/client"
	"github.com/CalverLabs/drsidx/internal/runtable"
)

// AccessionColumn is the input column holding the run accessions.
const AccessionColumn = "Run"

var (
	auditColumns  = []string{"drs_id", "drs_uri", "name", "is_bundle", "is_online", "offline_count", "total_objects"}
	onlineColumns = []string{"blob_id", "blob_uri", "output_path"}
)

// Processor drives resolve -> describe -> extract for every row of a run
// table, producing a full audit table and an online-only table. One
// processor instance covers one invocation; it owns nothing durable beyond
// a run id used to correlate its log lines.
type Processor struct {
	client *client.Client
	logger *slog.Logger
	runID  string
}

func NewProcessor(c *client.Client, logger *slog.Logger) *Processor {
	return &Processor{
		client: c,
		logger: logger.WithGroup("processor"),
		runID:  uuid.NewString(),
	}
}

// Process enriches the input table row by row, in input order. The audit
// table gets exactly one row per input row with the derived columns leading
// and every original column after them; the online table gets zero or more
// rows per input, one per retrievable leaf blob.
//
// Expected lookup failures never abort the run: an unresolvable accession
// produces an audit row with empty id and zero counts. A malformed service
// response aborts the whole run; the caller logs it and exits non-zero.
func (p *Processor) Process(ctx context.Context, in *runtable.Table) (*runtable.Table, *runtable.Table, error) {
	accIdx, ok := in.ColumnIndex(AccessionColumn)
	if !ok {
		return nil, nil, errors.Errorf("run table has no %q column", AccessionColumn)
	}

	full := runtable.New(append(append([]string{}, auditColumns...), in.Header()...))
	online := runtable.New(append(append([]string{}, onlineColumns...), in.Header()...))

	p.logger.Info("Starting DRS acquisition", "run_id", p.runID, "rows", len(in.Rows()))

	totalObjects := 0
	totalOffline := 0

	for i, row := range in.Rows() {
		if accIdx >= len(row) {
			return nil, nil, errors.Errorf("row %d is missing the %q column", i+1, AccessionColumn)
		}
		accession := row[accIdx]

		drsID, drsURI, err := p.client.Resolve(ctx, accession)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "row %d (%s)", i+1, accession)
		}

		res, err := p.client.Describe(ctx, drsID)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "row %d (%s)", i+1, accession)
		}

		audit := []string{
			drsID,
			drsURI,
			res.Name,
			strconv.FormatBool(res.IsBundle),
			strconv.FormatBool(res.IsOnline),
			strconv.Itoa(res.OfflineCount),
			strconv.Itoa(res.TotalObjects),
		}
		full.Append(append(audit, row...))

		totalObjects += res.TotalObjects
		totalOffline += res.OfflineCount

		if !res.IsOnline {
			continue
		}
		for _, rec := range p.client.ExtractOnlineBlobs(drsID, res.Name) {
			online.Append(append([]string{rec.BlobID, rec.BlobURI, rec.OutputPath}, row...))
		}
	}

	p.logger.Info("Finished DRS acquisition",
		"run_id", p.runID,
		"rows", len(in.Rows()),
		"total_objects", totalObjects,
		"total_offline", totalOffline,
		"total_online", totalObjects-totalOffline)

	return full, online, nil
}
