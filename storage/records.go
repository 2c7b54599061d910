package storage

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// ObjectKey identifies one object inside a bucket. All blobs attached
// to the same object share one write queue slot, so flushing the key
// commits every pending blob of that object.
type ObjectKey struct {
	Bucket string
	Object string
}

type storePropertyRecord struct {
	Name            string   `db:"name"`
	Data            []byte   `db:"data"`
	ExpireTimestamp null.Int `db:"expire_timestamp"`
	UpdatedAt       int64    `db:"updated_at"`
}

type bucketPropertyRecord struct {
	Bucket          string   `db:"bucket"`
	Name            string   `db:"name"`
	Data            []byte   `db:"data"`
	ExpireTimestamp null.Int `db:"expire_timestamp"`
	UpdatedAt       int64    `db:"updated_at"`
}

type objectBlobRecord struct {
	Bucket          string   `db:"bucket"`
	Object          string   `db:"object"`
	Name            string   `db:"name"`
	Data            []byte   `db:"data"`
	ExpireTimestamp null.Int `db:"expire_timestamp"`
	UpdatedAt       int64    `db:"updated_at"`
}

type blobRow struct {
	Data            []byte   `db:"data"`
	ExpireTimestamp null.Int `db:"expire_timestamp"`
}

func (r blobRow) expired(now time.Time) bool {
	return r.ExpireTimestamp.Valid && r.ExpireTimestamp.Int64 <= now.Unix()
}

// expiryFromTtl converts a ttl into an absolute unix timestamp; a zero
// ttl means the entry never expires.
func expiryFromTtl(now time.Time, ttl time.Duration) null.Int {
	if ttl <= 0 {
		return null.Int{}
	}
	return null.IntFrom(now.Add(ttl).Unix())
}

// REPLACE INTO is the one upsert spelling both sqlite and mysql accept.
const (
	upsertStoreProperty = "REPLACE INTO store_properties (name, data, expire_timestamp, updated_at) " +
		"VALUES (:name, :data, :expire_timestamp, :updated_at)"
	selectStoreProperty = "SELECT data, expire_timestamp FROM store_properties WHERE name = ?"
	deleteStoreProperty = "DELETE FROM store_properties WHERE name = ?"

	upsertBucketProperty = "REPLACE INTO bucket_properties (bucket, name, data, expire_timestamp, updated_at) " +
		"VALUES (:bucket, :name, :data, :expire_timestamp, :updated_at)"
	selectBucketProperty = "SELECT data, expire_timestamp FROM bucket_properties WHERE bucket = ? AND name = ?"
	deleteBucketProperty = "DELETE FROM bucket_properties WHERE bucket = ? AND name = ?"

	upsertObjectBlob = "REPLACE INTO object_blobs (bucket, object, name, data, expire_timestamp, updated_at) " +
		"VALUES (:bucket, :object, :name, :data, :expire_timestamp, :updated_at)"
	selectObjectBlob = "SELECT data, expire_timestamp FROM object_blobs WHERE bucket = ? AND object = ? AND name = ?"
	deleteObjectBlob = "DELETE FROM object_blobs WHERE bucket = ? AND object = ? AND name = ?"
)
