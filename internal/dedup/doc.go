// Package dedup implements the idempotency store on Redis: an existence
// check plus a set-with-expiry, keyed by request identifier. Records are
// written only after a successful delivery.
package dedup
