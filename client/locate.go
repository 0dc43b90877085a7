package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/CalverLabs/drsidx/models"
)

// Resolve maps a run accession to its DRS object id and a displayable URI
// via the location-index endpoint. Lookup failures (terminal status or an
// exhausted retry budget) are logged and reported as empty strings, never
// as an error; downstream treats an empty id as "nothing to classify". An
// error is returned only for a malformed response body or cancellation.
func (c *Client) Resolve(ctx context.Context, accession string) (string, string, error) {
	ref := &url.URL{Path: "idx/v1/" + accession}
	u := c.baseURL.ResolveReference(ref)
	q := u.Query()
	q.Set("submitted", "true")
	q.Set("etl", strconv.FormatBool(c.includeETL))
	u.RawQuery = q.Encode()

	resp, err := c.get(ctx, u.String())
	if err != nil {
		if expected(err) {
			c.logger.Error("Failed to resolve accession", "accession", accession, "error", err)
			return "", "", nil
		}
		return "", "", err
	}
	defer resp.Body.Close()

	var idx models.IdxResponse
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return "", "", fmt.Errorf("failed to decode idx response for %s: %w", accession, err)
	}

	entry, ok := idx.Response[accession]
	if !ok || entry.Drs == "" {
		// A 200 without our accession in it is a shape violation, not a
		// lookup miss; it aborts the run like any other malformed body.
		return "", "", fmt.Errorf("idx response for %s is missing the accession entry", accession)
	}

	drsURI := idx.DrsBase + "/" + entry.Drs
	c.logger.Debug("Resolved accession", "accession", accession, "drs_id", entry.Drs, "drs_uri", drsURI)
	return entry.Drs, drsURI, nil
}
