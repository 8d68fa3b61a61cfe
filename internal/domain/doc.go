// Package domain contains the core business entities and domain logic
// of the application: task records, retry ledger entries, and mirrored
// translations. It represents the heart of the system, independent of
// any specific infrastructure or delivery mechanism.
package domain
