// Package catalog defines the domain model shared by both remote catalogs:
// the inventory source-of-record and the storefront platform. It contains the
// value objects exchanged across the sync boundary, the match-key rules used
// to correlate records between the two catalogs, the port interfaces
// implemented by the infrastructure adapters, and the error taxonomy that
// drives retry and abort decisions.
//
// This package follows the Ports & Adapters pattern: interfaces are defined
// here, concrete HTTP adapters live in internal/infrastructure.
package catalog
