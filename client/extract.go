package client

import (
	"path"
	"strings"

	"github.com/CalverLabs/drsidx/models"
)

// FlattenDir is the common parent for every output path in flatten mode.
const FlattenDir = "DRS_Import"

// ExtractOnlineBlobs walks the retrievable leaf blobs of an already
// described object and derives storage names and paths for them. It reads
// only the caches populated by Describe and performs no network calls; a
// missing descriptor is logged and yields an empty result. objectName is
// the display name used as the directory for bundle members.
//
// Children that are themselves bundles are skipped: the extractor does not
// descend past one level of contents.
func (c *Client) ExtractOnlineBlobs(drsID, objectName string) []models.OnlineBlobRecord {
	item := c.objects.Get(drsID)
	if item == nil {
		c.logger.Error("No cached descriptor for object", "drs_id", drsID)
		return nil
	}
	obj := item.Value()

	if !obj.IsBundle() {
		if !c.cachedVerdict(drsID) {
			return nil
		}
		return []models.OnlineBlobRecord{{
			BlobID:     drsID,
			BlobURI:    c.blobURI(obj),
			OutputPath: c.blobPath("", deriveName(obj.Name)),
		}}
	}

	var records []models.OnlineBlobRecord
	for i := range obj.Contents {
		child := &obj.Contents[i]
		if child.IsBundle() {
			continue
		}
		if !c.cachedVerdict(child.ID) {
			continue
		}
		records = append(records, models.OnlineBlobRecord{
			BlobID:     child.ID,
			BlobURI:    c.blobURI(child),
			OutputPath: c.blobPath(objectName, deriveName(child.Name)),
		})
	}
	return records
}

// cachedVerdict is a read-only view of the blob status cache. Extraction
// runs after aggregation, so every relevant verdict is already present; an
// absent entry is treated as offline rather than triggering a probe.
func (c *Client) cachedVerdict(blobID string) bool {
	item := c.status.Get(blobID)
	return item != nil && item.Value()
}

func (c *Client) blobURI(obj *models.DrsObject) string {
	if obj.SelfURI != "" {
		return obj.SelfURI
	}
	return "drs://" + c.baseURL.Host + "/" + obj.ID
}

func (c *Client) blobPath(bundleName, name string) string {
	if c.flatten {
		return path.Join(FlattenDir, name)
	}
	if bundleName != "" {
		return path.Join(bundleName, name)
	}
	return name
}

// deriveName rewrites a display name for storage: ".lite" archives become
// ".sralite", extensionless names get ".sra", everything else is kept.
func deriveName(name string) string {
	if strings.HasSuffix(name, ".lite") {
		return strings.TrimSuffix(name, ".lite") + ".sralite"
	}
	if !strings.Contains(name, ".") {
		return name + ".sra"
	}
	return name
}
