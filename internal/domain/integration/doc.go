// Package integration models a tenant's connections to third-party platforms
// and the contract for pulling their records into the hub.
//
// Imported records are de-duplicated by a marker token, "<Platform>:<remote id>",
// embedded in the local record's description. A sync creates a record only when
// no existing description of the same kind contains the marker as a whole
// token, so "QuickBooks:1" is not found inside "QuickBooks:10". A marker that
// appears by coincidence in an unrelated description suppresses the import.
package integration
