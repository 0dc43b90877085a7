package models

/*
	Wire shapes returned by the resolution service, and the result records
	the engine hands to the table assembly layer.

	The idx endpoint maps a run accession to a DRS object id. The DRS object
	endpoint returns the object metadata; a "contents" collection marks the
	object as a bundle, its absence marks it as a single blob.
*/

// IdxEntry is one accession's entry in an idx lookup response.
type IdxEntry struct {
	Drs string `json:"drs"`
}

// IdxResponse is the body of a location-index lookup.
// DrsBase is the service-provided base used to display object URIs.
type IdxResponse struct {
	DrsBase  string              `json:"drs-base"`
	Response map[string]IdxEntry `json:"response"`
}

// DrsObject is the metadata of a single DRS object. Contents is only
// populated for bundles fetched with expand=true; the service omits the
// field entirely for blobs, so a nil slice means "not a bundle" while an
// empty non-nil slice means "bundle with no members".
type DrsObject struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	SelfURI  string      `json:"self_url,omitempty"`
	Contents []DrsObject `json:"contents,omitempty"`
}

// IsBundle reports whether the object is a container of further objects.
func (o *DrsObject) IsBundle() bool {
	return o.Contents != nil
}

// ResolutionResult is the aggregated verdict for one resolved object.
// The zero value is the "unresolved" sentinel: nothing to report, distinct
// from "resolved but fully offline" (which has TotalObjects > 0).
type ResolutionResult struct {
	DrsID        string
	DrsURI       string
	Name         string
	IsBundle     bool
	IsOnline     bool
	OfflineCount int
	TotalObjects int
}

// OnlineBlobRecord describes one retrievable leaf blob of an online object.
// OutputPath already reflects the naming transform and layout mode.
type OnlineBlobRecord struct {
	BlobID     string
	BlobURI    string
	OutputPath string
}
