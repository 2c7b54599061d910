package storage

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// StartExpiryPurge periodically removes rows whose ttl has lapsed.
// Reads already treat expired rows as missing; the purge just keeps the
// tables from accumulating dead blobs.
func (s *Store) StartExpiryPurge() {
	ticker := time.NewTicker(15 * time.Minute)
	go func() {
		for {
			<-ticker.C
			start := time.Now()
			now := start.Unix()

			removed := int64(0)
			for _, table := range []string{"store_properties", "bucket_properties", "object_blobs"} {
				result, err := s.db.Pool.Exec(
					"DELETE FROM "+table+" WHERE expire_timestamp IS NOT NULL AND expire_timestamp < ?", now)
				if err != nil {
					log.Errorf("DB - Purge of %s error %s", table, err)
					continue
				}
				rows, _ := result.RowsAffected()
				removed += rows
			}

			log.Infof("DB - Expiry purge took %s (%d rows)", time.Since(start), removed)
		}
	}()
}
