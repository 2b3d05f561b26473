// Package platform pulls records from third-party platforms into the hub.
//
// Each supported platform has one Syncer. A Dispatcher routes an integration
// to its Syncer by platform code; the set of platforms is fixed by the
// Syncers struct. Every sync pass fetches a single bounded page, creates
// local records only for remote ids whose marker token is not yet present,
// and stamps the integration's LastSynced time.
package platform
