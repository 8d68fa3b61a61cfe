// Package shopgql implements the translation.ContentGateway interface
// against the merchant platform's GraphQL admin API. It fetches the
// digest precondition tokens for a resource's translatable content and
// registers translated values guarded by those digests.
package shopgql
