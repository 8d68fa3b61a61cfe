// Package translation implements the batch orchestrator that translates
// a resource's fields into a set of target locales. Cheap fields are
// batched into one combined provider call covering every locale;
// expensive fields are translated one locale at a time. Each unit of
// work fails independently, and the aggregate outcome is reported
// through a durable task record.
package translation
