// Package store persists the principals that can hold a storefront session.
//
// Users (shoppers) and admins are kept in separate tables. Email uniqueness
// is enforced per table and case-insensitively; the same address may exist
// once as a user and once as an admin without the two being related.
//
// SQLiteStore is the production implementation (modernc.org/sqlite, WAL
// mode). MockStore is an in-memory stand-in for tests and can be told to
// fail every call so callers' storage-fault paths are exercised.
package store
