package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jellydator/ttlcache/v3"

	"github.com/CalverLabs/drsidx/models"
)

// Describe classifies a DRS object and aggregates the online status of its
// members. An empty id yields the zero-value "unresolved" result with no
// error; so does a metadata fetch that fails after transport has done its
// retrying. Only a malformed body or cancellation comes back as an error.
//
// Bundle children are probed as if they were blobs. A child that is itself
// a bundle is NOT re-classified or descended into; its counts reflect the
// probe of the child id alone. Downstream consumers depend on these counts,
// so the one-level limitation is deliberate.
func (c *Client) Describe(ctx context.Context, drsID string) (models.ResolutionResult, error) {
	if drsID == "" {
		return models.ResolutionResult{}, nil
	}

	obj, err := c.fetchObject(ctx, drsID)
	if err != nil {
		return models.ResolutionResult{}, err
	}
	if obj == nil {
		c.logger.Error("Failed to fetch object metadata", "drs_id", drsID)
		return models.ResolutionResult{}, nil
	}

	if !obj.IsBundle() {
		offline := 0
		if !c.IsOnline(ctx, drsID) {
			offline = 1
		}
		return models.ResolutionResult{
			DrsID:        drsID,
			Name:         obj.Name,
			IsOnline:     offline == 0,
			OfflineCount: offline,
			TotalObjects: 1,
		}, nil
	}

	total := len(obj.Contents)
	offline := 0
	for _, child := range obj.Contents {
		if !c.IsOnline(ctx, child.ID) {
			offline++
		}
	}

	res := models.ResolutionResult{
		DrsID:        drsID,
		Name:         obj.Name,
		IsBundle:     true,
		IsOnline:     offline < total,
		OfflineCount: offline,
		TotalObjects: total,
	}
	c.logger.Debug("Described bundle",
		"drs_id", drsID, "name", obj.Name,
		"total_objects", total, "offline", offline)
	return res, nil
}

// fetchObject returns the descriptor for drsID, hitting the service at most
// once per client lifetime. A nil object with a nil error means the object
// could not be fetched (already logged by the transport layer).
func (c *Client) fetchObject(ctx context.Context, drsID string) (*models.DrsObject, error) {
	if item := c.objects.Get(drsID); item != nil {
		return item.Value(), nil
	}

	resp, err := c.get(ctx, c.objectURL(drsID, true))
	if err != nil {
		if expected(err) {
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	var obj models.DrsObject
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to decode object metadata for %s: %w", drsID, err)
	}

	c.objects.Set(drsID, &obj, ttlcache.DefaultTTL)
	return &obj, nil
}

// IsOnline reports whether a blob currently answers its existence probe.
// The verdict is cached for the lifetime of the client; a cached answer is
// returned unconditionally without re-probing. The probe itself does not
// retry beyond what the transport already does: a 200 means online, any
// terminal status or exhausted budget means offline.
func (c *Client) IsOnline(ctx context.Context, blobID string) bool {
	if item := c.status.Get(blobID); item != nil {
		return item.Value()
	}

	resp, err := c.get(ctx, c.objectURL(blobID, false))
	online := err == nil
	if online {
		resp.Body.Close()
	} else {
		c.logger.Warn("Blob is offline", "blob_id", blobID, "error", err)
	}

	c.status.Set(blobID, online, ttlcache.DefaultTTL)
	return online
}
